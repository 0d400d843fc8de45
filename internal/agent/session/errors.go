package session

import (
	"errors"
	"fmt"
)

var (
	ErrClosed        = errors.New("session closed")
	ErrActionTimeout = errors.New("timeout waiting for action result")
)

// ActionError is a rejection reported by the world in an ACTION_RESULT event.
type ActionError struct {
	Code    string
	Message string
}

func (e *ActionError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
