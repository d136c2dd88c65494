package bot

import (
	"errors"
	"strings"

	"goeventcity/internal/database"
	"goeventcity/internal/payment"
	"goeventcity/internal/service"
	"goeventcity/internal/wizard"
)

func (b *Bot) getErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, database.ErrNotAvailable):
		return "⚠️ Sorry, this venue is already booked for that time. Please pick another date or time."
	case errors.Is(err, database.ErrPastDate):
		return "⚠️ That date is in the past."
	case errors.Is(err, database.ErrDateTooFar):
		return "⚠️ That date is too far ahead. Please choose an earlier date."
	case errors.Is(err, wizard.ErrInvalidQuoteInput):
		return "⚠️ " + detail(err, wizard.ErrInvalidQuoteInput)
	case errors.Is(err, wizard.ErrInvalidPaymentDetails):
		return "⚠️ " + detail(err, wizard.ErrInvalidPaymentDetails)
	case errors.Is(err, payment.ErrPaymentDeclined):
		return "💳 Your card was declined. Please try another payment method."
	case errors.Is(err, wizard.ErrSubmissionInProgress):
		return "⏳ Your booking request is being submitted. Please wait."
	case errors.Is(err, wizard.ErrInvalidTransition):
		return "⚠️ That action is not available at this step."
	case errors.Is(err, service.ErrSessionNotFound):
		return "Your booking session has expired. Send /venues to start again."
	case errors.Is(err, service.ErrVenueNotFound):
		return "⚠️ Venue not found. Send /venues to see the list."
	}

	return "❌ Something went wrong while processing your request. Please try again later."
}

// detail strips the sentinel prefix from a wrapped validation error.
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
