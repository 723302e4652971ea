package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrDuplicateLock is returned when a booking already exists for the lock.
	ErrDuplicateLock = errors.New("booking already exists for lock")

	// ErrStatusChanged is returned when a conditional status transition finds
	// the booking in another status.
	ErrStatusChanged = errors.New("booking status changed concurrently")
)
