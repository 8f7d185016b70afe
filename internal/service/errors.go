package service

import "errors"

var (
	ErrInternal           = errors.New("internal server error")
	ErrNotFound           = errors.New("notification not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrBacklogUnavailable = errors.New("backlog unavailable")
	ErrIntakeClosed       = errors.New("intake queue closed")
)
