package errors

import "errors"

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrVisitNotFound   = errors.New("visit not found")

	ErrDuplicateVisit = errors.New("visit already exists for booking")
	ErrDuplicateToken = errors.New("token already used by another visit")
)
