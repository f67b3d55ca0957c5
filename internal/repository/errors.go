package repository

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrCapacityExceeded is returned by the seat-commit transaction when the
	// event no longer has enough remaining seats.
	ErrCapacityExceeded = errors.New("event capacity exceeded")

	// ErrDuplicateReference is returned when a payment reference collides
	// with an existing record.
	ErrDuplicateReference = errors.New("duplicate payment reference")
)
