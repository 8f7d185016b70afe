package rabbitmq

const (
	CREATE_NOTIFICATION_QUEUE = "notifications.create"
)
