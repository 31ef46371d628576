package exchange

import (
	"errors"
	"fmt"
)

// TransportError wraps a network-level failure (timeout, connection reset,
// unreadable response). Callers treat these as transient and retry on the
// next cycle rather than acting on them.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("exchange %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is an application-level rejection from the exchange (quote
// expired, pair unavailable, order refused). The message is safe to surface
// to the user.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exchange rejected request (%d): %s", e.StatusCode, e.Message)
}

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// AsAPIError returns the application-level rejection inside err, if any.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
