package signaling

import (
	"errors"
	"fmt"

	"github.com/BioHazard786/rendezvous/internal/registry"
)

var (
	// ErrInvalidRoomKey reports a room operation with an empty or non-string key.
	ErrInvalidRoomKey = registry.ErrInvalidRoomKey

	// ErrInvalidPayload reports an offer, answer or candidate that failed shape
	// validation. These are never surfaced to the sender.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrInternal reports an unexpected failure inside a handler.
	ErrInternal = errors.New("internal error")

	// ErrUnknownEvent reports a frame whose type has no handler.
	ErrUnknownEvent = errors.New("unknown event")
)

// HandlerError describes why a single inbound event was not processed.
type HandlerError struct {
	Event   string
	Err     error
	Details string
}

func (e *HandlerError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Event, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Event, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

func newHandlerError(event string, err error, details string) *HandlerError {
	return &HandlerError{Event: event, Err: err, Details: details}
}
