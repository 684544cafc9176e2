package signalclient

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned for operations on a closed or disconnected client.
	ErrClosed = errors.New("signaling connection closed")

	// ErrRejected is wrapped by ServerError when the server acks with ok=false.
	ErrRejected = errors.New("rejected by server")
)

// ServerError is a failed acknowledgement.
type ServerError struct {
	Event   string
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Event, ErrRejected)
	}
	return fmt.Sprintf("%s: %v: %s", e.Event, ErrRejected, e.Message)
}

func (e *ServerError) Unwrap() error {
	return ErrRejected
}
