package redisrepo

import "fmt"

const (
	USER_NOTIFICATIONS      = "user:%s-notifications" // <userID>, hash of cached pages
	USER_NOTIFICATIONS_PAGE = "unread=%t:%d:%d"       // <unreadOnly>:<limit>:<offset>
)

func UserNotificationsKey(userID string) string {
	return fmt.Sprintf(USER_NOTIFICATIONS, userID)
}

func UserNotificationsPage(unreadOnly bool, limit int, offset int) string {
	return fmt.Sprintf(USER_NOTIFICATIONS_PAGE, unreadOnly, limit, offset)
}
