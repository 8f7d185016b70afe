package changefeed

import (
	"errors"
	"fmt"
)

var (
	ErrNotStarted     = errors.New("change feed bridge is not started")
	ErrAlreadyRunning = errors.New("change feed bridge is already running")
)

// ConnectivityError means the change feed source could not be reached or the
// subscription was lost. It is fatal to the bridge's current run.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("change feed %s: %s", e.Op, e.Err.Error())
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// MalformedEventError is returned for a payload that cannot be routed.
// The event is dropped and the subscription continues.
type MalformedEventError struct {
	Reason string
	Err    error
}

func (e *MalformedEventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed change event: %s: %s", e.Reason, e.Err.Error())
	}
	return "malformed change event: " + e.Reason
}

func (e *MalformedEventError) Unwrap() error {
	return e.Err
}
