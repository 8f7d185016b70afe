package dto

// MQCreateNotification is the body published by producers on the intake queue.
type MQCreateNotification struct {
	UserID  string `json:"user_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (m MQCreateNotification) Request() CreateNotification {
	return CreateNotification{
		UserID:  m.UserID,
		Title:   m.Title,
		Message: m.Message,
		Type:    m.Type,
	}
}
