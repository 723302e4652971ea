package errors

import "errors"

var (
	// ErrCounterUnavailable wraps any failure of the counter backend.
	ErrCounterUnavailable = errors.New("token counter unavailable")
)
