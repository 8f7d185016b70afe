package handler

import "errors"

var (
	errNoToken               = errors.New("there is no token")
	errInvalidJWT            = errors.New("invalid jwt")
	errNotAdmin              = errors.New("you are not an admin")
	errForeignUser           = errors.New("token does not belong to this user")
	errInvalidLimitOffset    = errors.New("limit and offset must be integer")
	errInvalidUnread         = errors.New("unread must be a boolean")
	errInvalidNotificationID = errors.New("notification id must be a positive integer")
	errChangeFeedDown        = errors.New("change feed is not listening")
)
