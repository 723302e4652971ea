package errors

import "errors"

var (
	ErrNotFound = errors.New("slot not found")

	ErrInvalidID = errors.New("invalid slot ID format")

	// ErrFull is returned when a hold or commit would exceed the slot's capacity.
	ErrFull = errors.New("slot has no remaining capacity")

	// ErrNoHold is returned when a commit or unhold finds no outstanding hold to consume.
	ErrNoHold = errors.New("slot has no outstanding hold")

	ErrInUse = errors.New("slot has booked or held capacity")

	ErrDuplicate = errors.New("slot already exists for hospital, date and slot number")
)
