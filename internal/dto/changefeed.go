package dto

import "github.com/BloggingApp/realtime-notifications/internal/model"

// ChangeEvent is the payload published by the notify_new_notification trigger.
type ChangeEvent struct {
	UserID       string             `json:"user_id"`
	Notification model.Notification `json:"notification"`
}
