package transport

import (
	"fmt"
)

// Error is a failed transport call with the status and message the server
// returned. StatusCode is 0 when no response was received.
type Error struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport error (status %d): %s: %v",
			e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("transport error (status %d): %s",
		e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}
