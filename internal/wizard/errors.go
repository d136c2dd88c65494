package wizard

import "errors"

var (
	ErrInvalidQuoteInput     = errors.New("invalid quote input")
	ErrInvalidPaymentDetails = errors.New("invalid payment details")
	ErrInvalidTransition     = errors.New("invalid wizard transition")
	ErrSubmissionInProgress  = errors.New("submission already in progress")
)
