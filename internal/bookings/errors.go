package bookings

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound means the referenced booking or service does not exist.
	ErrNotFound = errors.New("bookings: not found")
	// ErrTerminalState means the booking is already cancelled, completed,
	// or a no-show, and cannot be mutated further.
	ErrTerminalState = errors.New("bookings: booking is in a terminal state")
)

// ConflictError is the expected "no" outcome of a write: the availability
// re-check under lock rejected the interval. Reasons carries the ordered
// stage reasons verbatim for the client.
type ConflictError struct {
	Reasons []string
}

func (e *ConflictError) Error() string {
	return "bookings: time slot unavailable: " + strings.Join(e.Reasons, " ")
}
