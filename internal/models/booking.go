package models

import "time"

type PaymentMethod string

const (
	PaymentMethodNewCard   PaymentMethod = "new_card"
	PaymentMethodSavedCard PaymentMethod = "saved_card"
)

// BookingRequest is the in-progress draft owned by a wizard session.
type BookingRequest struct {
	VenueID      int64         `json:"venue_id"`
	Date         time.Time     `json:"date"`
	StartTime    string        `json:"start_time"`
	EndTime      string        `json:"end_time"`
	EventType    string        `json:"event_type"`
	GuestCount   int           `json:"guest_count"`
	ContactName  string        `json:"contact_name"`
	ContactEmail string        `json:"contact_email"`
	ContactPhone string        `json:"contact_phone"`
	Payment      PaymentMethod `json:"payment_method"`
	Card         CardDetails   `json:"card"`
	SaveCard     bool          `json:"save_card"`
}

type CardDetails struct {
	Number     string `json:"number,omitempty"`
	Expiry     string `json:"expiry,omitempty"`
	CVV        string `json:"cvv,omitempty"`
	BillingZip string `json:"billing_zip,omitempty"`
}

// LastFour returns the trailing four characters of the card number.
func (c CardDetails) LastFour() string {
	if len(c.Number) < 4 {
		return c.Number
	}
	return c.Number[len(c.Number)-4:]
}

type PricingBreakdown struct {
	Date            time.Time `json:"date"`
	Hours           int       `json:"hours"`
	BaseCost        float64   `json:"base_cost"`
	CleaningFee     float64   `json:"cleaning_fee"`
	SecurityDeposit float64   `json:"security_deposit"`
	Total           float64   `json:"total"`
	// FullDayWrap is set when start and end are equal and the window was
	// counted as 24 hours.
	FullDayWrap bool `json:"full_day_wrap"`
}

// Confirmation is what the confirmation step displays.
type Confirmation struct {
	Reference         string    `json:"reference"`
	HoldAmount        float64   `json:"hold_amount"`
	Total             float64   `json:"total"`
	ResponseTimeHours int       `json:"response_time_hours"`
	AuthorizationID   string    `json:"authorization_id"`
	SubmittedAt       time.Time `json:"submitted_at"`
}

type Booking struct {
	ID              int64         `json:"id"`
	Reference       string        `json:"reference"`
	VenueID         int64         `json:"venue_id"`
	VenueName       string        `json:"venue_name"`
	Date            time.Time     `json:"date"`
	StartTime       string        `json:"start_time"`
	EndTime         string        `json:"end_time"`
	StartsAt        time.Time     `json:"starts_at"`
	EndsAt          time.Time     `json:"ends_at"`
	Hours           int           `json:"hours"`
	EventType       string        `json:"event_type"`
	GuestCount      int           `json:"guest_count"`
	ContactName     string        `json:"contact_name"`
	ContactEmail    string        `json:"contact_email"`
	ContactPhone    string        `json:"contact_phone"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	CardLastFour    string        `json:"card_last_four,omitempty"`
	AuthorizationID string        `json:"authorization_id"`
	HoldAmount      float64       `json:"hold_amount"`
	Total           float64       `json:"total"`
	Status          string        `json:"status"` // requested, confirmed, declined, cancelled
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Version         int64         `json:"version"`
}
