package models

import (
	"strconv"
	"time"
)

type WizardStep string

const (
	StepDetails      WizardStep = "details"
	StepReview       WizardStep = "review"
	StepPayment      WizardStep = "payment"
	StepConfirmation WizardStep = "confirmation"
)

// WizardSession is the persisted state of one booking wizard run.
type WizardSession struct {
	ID           string            `json:"id"`
	VenueID      int64             `json:"venue_id"`
	Step         WizardStep        `json:"step"`
	Request      BookingRequest    `json:"request"`
	Quote        *PricingBreakdown `json:"quote,omitempty"`
	Confirmation *Confirmation     `json:"confirmation,omitempty"`
	Submitting   bool              `json:"submitting"`
	Meta         map[string]string `json:"meta,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (s *WizardSession) GetMeta(key string) string {
	if s.Meta == nil {
		return ""
	}
	return s.Meta[key]
}

func (s *WizardSession) GetMetaInt64(key string) int64 {
	v, err := strconv.ParseInt(s.GetMeta(key), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func (s *WizardSession) SetMeta(key, value string) {
	if s.Meta == nil {
		s.Meta = make(map[string]string)
	}
	s.Meta[key] = value
}

type Availability struct {
	VenueID   int64     `json:"venue_id"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Available bool      `json:"available"`
	Conflicts int       `json:"conflicts"`
}
