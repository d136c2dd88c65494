package service

import "errors"

var (
	ErrSessionNotFound = errors.New("wizard session not found")
	ErrVenueNotFound   = errors.New("venue not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrInvalidStatus   = errors.New("booking status does not allow this change")
)
