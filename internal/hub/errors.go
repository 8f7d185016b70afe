package hub

import (
	"errors"
	"fmt"
)

var (
	ErrSessionClosed  = errors.New("session is closed")
	ErrSendBufferFull = errors.New("session send buffer is full")
	ErrPeerClosed     = errors.New("session closed by peer")
)

// SessionIOError is a send or receive failure on a single live session.
// It is local to that session and never reaches other sessions.
type SessionIOError struct {
	SessionID string
	Op        string
	Err       error
}

func (e *SessionIOError) Error() string {
	return fmt.Sprintf("session(%s) %s: %s", e.SessionID, e.Op, e.Err.Error())
}

func (e *SessionIOError) Unwrap() error {
	return e.Err
}
