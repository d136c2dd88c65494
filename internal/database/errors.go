package database

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrNotAvailable           = errors.New("venue is not available for the requested window")
	ErrConcurrentModification = errors.New("booking was modified concurrently")
	ErrDuplicateReference     = errors.New("booking reference already exists")
	ErrPastDate               = errors.New("booking date is in the past")
	ErrDateTooFar             = errors.New("booking date is too far in the future")
)
