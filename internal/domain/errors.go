package domain

import "errors"

var (
	// ErrNotFound is returned when a document or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a record is not in the state an operation requires.
	ErrConflict = errors.New("conflict")
	// ErrInvalidArgument is returned for input that fails validation.
	ErrInvalidArgument = errors.New("invalid argument")
)
