// Package wizard implements the booking wizard as an explicit state machine:
//
//	details -> review -> payment -> confirmation
//
// Back moves to the immediately preceding step, Modify returns from review to
// details. Every transition validates the current step and returns the next
// one; a rejected transition leaves the session untouched.
package wizard

import (
	"fmt"
	"strings"
	"time"

	"goeventcity/internal/models"
	"goeventcity/internal/pricing"
)

// New returns a fresh session in the details step.
func New(id string, venueID int64, now time.Time) *models.WizardSession {
	return &models.WizardSession{
		ID:      id,
		VenueID: venueID,
		Step:    models.StepDetails,
		Request: models.BookingRequest{
			VenueID: venueID,
			Payment: models.PaymentMethodNewCard,
		},
		UpdatedAt: now,
	}
}

// DetailsUpdate carries the details-step fields; nil fields are left as is.
type DetailsUpdate struct {
	Date         *time.Time
	StartTime    *string
	EndTime      *string
	EventType    *string
	GuestCount   *int
	ContactName  *string
	ContactEmail *string
	ContactPhone *string
}

// PaymentUpdate carries the payment-step fields; nil fields are left as is.
type PaymentUpdate struct {
	Method     *models.PaymentMethod
	CardNumber *string
	Expiry     *string
	CVV        *string
	BillingZip *string
	SaveCard   *bool
}

func SetDetails(s *models.WizardSession, u DetailsUpdate) error {
	if err := expect(s, models.StepDetails); err != nil {
		return err
	}
	r := &s.Request
	if u.Date != nil {
		r.Date = *u.Date
	}
	if u.StartTime != nil {
		r.StartTime = strings.TrimSpace(*u.StartTime)
	}
	if u.EndTime != nil {
		r.EndTime = strings.TrimSpace(*u.EndTime)
	}
	if u.EventType != nil {
		r.EventType = strings.TrimSpace(*u.EventType)
	}
	if u.GuestCount != nil {
		r.GuestCount = *u.GuestCount
	}
	if u.ContactName != nil {
		r.ContactName = strings.TrimSpace(*u.ContactName)
	}
	if u.ContactEmail != nil {
		r.ContactEmail = strings.TrimSpace(*u.ContactEmail)
	}
	if u.ContactPhone != nil {
		r.ContactPhone = strings.TrimSpace(*u.ContactPhone)
	}
	// A changed draft invalidates the previous quote.
	s.Quote = nil
	return nil
}

func SetPayment(s *models.WizardSession, u PaymentUpdate) error {
	if err := expect(s, models.StepPayment); err != nil {
		return err
	}
	if s.Submitting {
		return ErrSubmissionInProgress
	}
	r := &s.Request
	if u.Method != nil {
		r.Payment = *u.Method
	}
	if u.CardNumber != nil {
		r.Card.Number = strings.TrimSpace(*u.CardNumber)
	}
	if u.Expiry != nil {
		r.Card.Expiry = strings.TrimSpace(*u.Expiry)
	}
	if u.CVV != nil {
		r.Card.CVV = strings.TrimSpace(*u.CVV)
	}
	if u.BillingZip != nil {
		r.Card.BillingZip = strings.TrimSpace(*u.BillingZip)
	}
	if u.SaveCard != nil {
		r.SaveCard = *u.SaveCard
	}
	return nil
}

// ValidateQuoteInput checks the fields a quote needs against the venue.
func ValidateQuoteInput(r models.BookingRequest, venue *models.Venue) error {
	switch {
	case r.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidQuoteInput)
	case r.EventType == "":
		return fmt.Errorf("%w: event type is required", ErrInvalidQuoteInput)
	case r.GuestCount < 1:
		return fmt.Errorf("%w: guest count must be at least 1", ErrInvalidQuoteInput)
	case venue != nil && r.GuestCount > venue.Capacity:
		return fmt.Errorf("%w: guest count %d exceeds venue capacity %d", ErrInvalidQuoteInput, r.GuestCount, venue.Capacity)
	}
	if _, err := pricing.ParseHour(r.StartTime); err != nil {
		return fmt.Errorf("%w: start time: %v", ErrInvalidQuoteInput, err)
	}
	if _, err := pricing.ParseHour(r.EndTime); err != nil {
		return fmt.Errorf("%w: end time: %v", ErrInvalidQuoteInput, err)
	}
	return nil
}

// Quote validates the draft and prices it without touching the session.
func Quote(r models.BookingRequest, venue *models.Venue) (models.PricingBreakdown, error) {
	if venue == nil {
		return models.PricingBreakdown{}, fmt.Errorf("%w: venue is required", ErrInvalidQuoteInput)
	}
	if err := ValidateQuoteInput(r, venue); err != nil {
		return models.PricingBreakdown{}, err
	}
	return pricing.Calculate(pricing.Input{
		Date:         r.Date,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		PricePerHour: venue.PricePerHour,
		Fees:         venue.Fees,
	})
}

// RequestQuote moves details -> review.
func RequestQuote(s *models.WizardSession, venue *models.Venue) (models.WizardStep, error) {
	if err := expect(s, models.StepDetails); err != nil {
		return s.Step, err
	}
	breakdown, err := Quote(s.Request, venue)
	if err != nil {
		return s.Step, err
	}
	s.Quote = &breakdown
	s.Step = models.StepReview
	return s.Step, nil
}

// Proceed moves review -> payment.
func Proceed(s *models.WizardSession) (models.WizardStep, error) {
	if err := expect(s, models.StepReview); err != nil {
		return s.Step, err
	}
	if s.Quote == nil {
		return s.Step, fmt.Errorf("%w: no quote to proceed with", ErrInvalidTransition)
	}
	s.Step = models.StepPayment
	return s.Step, nil
}

// Back returns to the immediately preceding step.
func Back(s *models.WizardSession) (models.WizardStep, error) {
	switch s.Step {
	case models.StepReview:
		s.Step = models.StepDetails
	case models.StepPayment:
		if s.Submitting {
			return s.Step, ErrSubmissionInProgress
		}
		s.Step = models.StepReview
	default:
		return s.Step, fmt.Errorf("%w: cannot go back from %s", ErrInvalidTransition, s.Step)
	}
	return s.Step, nil
}

// Modify returns from the quote view to details.
func Modify(s *models.WizardSession) (models.WizardStep, error) {
	if err := expect(s, models.StepReview); err != nil {
		return s.Step, err
	}
	s.Step = models.StepDetails
	return s.Step, nil
}

// ValidatePayment reports whether the payment step may be submitted.
// A saved card is treated as already validated.
func ValidatePayment(r models.BookingRequest) error {
	switch r.Payment {
	case models.PaymentMethodSavedCard:
		return nil
	case models.PaymentMethodNewCard:
		c := r.Card
		switch {
		case len(c.Number) < 16:
			return fmt.Errorf("%w: card number too short", ErrInvalidPaymentDetails)
		case len(c.Expiry) < 5:
			return fmt.Errorf("%w: expiry must be MM/YY", ErrInvalidPaymentDetails)
		case len(c.CVV) < 3:
			return fmt.Errorf("%w: cvv too short", ErrInvalidPaymentDetails)
		case len(c.BillingZip) < 5:
			return fmt.Errorf("%w: billing zip too short", ErrInvalidPaymentDetails)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidPaymentDetails, r.Payment)
	}
}

// BeginSubmit marks the session as submitting. Only one submission may be in
// flight at a time.
func BeginSubmit(s *models.WizardSession) error {
	if err := expect(s, models.StepPayment); err != nil {
		return err
	}
	if s.Submitting {
		return ErrSubmissionInProgress
	}
	if s.Quote == nil {
		return fmt.Errorf("%w: no quote to submit", ErrInvalidTransition)
	}
	if err := ValidatePayment(s.Request); err != nil {
		return err
	}
	s.Submitting = true
	return nil
}

// Complete moves payment -> confirmation after a successful submission.
func Complete(s *models.WizardSession, c models.Confirmation) (models.WizardStep, error) {
	if err := expect(s, models.StepPayment); err != nil {
		return s.Step, err
	}
	if !s.Submitting {
		return s.Step, fmt.Errorf("%w: no submission in progress", ErrInvalidTransition)
	}
	s.Submitting = false
	s.Confirmation = &c
	s.Step = models.StepConfirmation
	// Card fields are not kept past submission.
	s.Request.Card = models.CardDetails{}
	return s.Step, nil
}

// Abort clears the in-flight flag after a failed submission.
func Abort(s *models.WizardSession) {
	s.Submitting = false
}

func expect(s *models.WizardSession, step models.WizardStep) error {
	if s.Step != step {
		return fmt.Errorf("%w: expected step %s, got %s", ErrInvalidTransition, step, s.Step)
	}
	return nil
}
