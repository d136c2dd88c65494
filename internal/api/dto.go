package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"goeventcity/internal/models"
	"goeventcity/internal/service"
	"goeventcity/internal/wizard"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type quoteRequest struct {
	VenueID    int64  `json:"venue_id" validate:"required,gt=0"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime  string `json:"start_time" validate:"required"`
	EndTime    string `json:"end_time" validate:"required"`
	EventType  string `json:"event_type" validate:"required"`
	GuestCount int    `json:"guest_count" validate:"required,gte=1"`
}

func (r quoteRequest) toService() service.QuoteRequest {
	date, _ := time.Parse(models.DateLayout, r.Date)
	return service.QuoteRequest{
		VenueID:    r.VenueID,
		Date:       date,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		EventType:  r.EventType,
		GuestCount: r.GuestCount,
	}
}

type quoteResponse struct {
	VenueID    int64                   `json:"venue_id"`
	VenueName  string                  `json:"venue_name"`
	Breakdown  models.PricingBreakdown `json:"breakdown"`
	HoldAmount float64                 `json:"hold_amount"`
	Available  bool                    `json:"available"`
}

func newQuoteResponse(res *service.QuoteResult) quoteResponse {
	return quoteResponse{
		VenueID:    res.Venue.ID,
		VenueName:  res.Venue.Name,
		Breakdown:  res.Breakdown,
		HoldAmount: res.HoldAmount,
		Available:  res.Available,
	}
}

type startWizardRequest struct {
	VenueID int64 `json:"venue_id" validate:"required,gt=0"`
}

type detailsRequest struct {
	Date         *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime    *string `json:"start_time"`
	EndTime      *string `json:"end_time"`
	EventType    *string `json:"event_type" validate:"omitempty,max=100"`
	GuestCount   *int    `json:"guest_count" validate:"omitempty,gte=0"`
	ContactName  *string `json:"contact_name" validate:"omitempty,max=200"`
	ContactEmail *string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone *string `json:"contact_phone" validate:"omitempty,max=50"`
}

func (r detailsRequest) toUpdate() wizard.DetailsUpdate {
	u := wizard.DetailsUpdate{
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		EventType:    r.EventType,
		GuestCount:   r.GuestCount,
		ContactName:  r.ContactName,
		ContactEmail: r.ContactEmail,
		ContactPhone: r.ContactPhone,
	}
	if r.Date != nil {
		date, _ := time.Parse(models.DateLayout, *r.Date)
		u.Date = &date
	}
	return u
}

type paymentRequest struct {
	Method     *string `json:"payment_method" validate:"omitempty,oneof=new_card saved_card"`
	CardNumber *string `json:"card_number" validate:"omitempty,numeric"`
	Expiry     *string `json:"expiry"`
	CVV        *string `json:"cvv" validate:"omitempty,numeric"`
	BillingZip *string `json:"billing_zip"`
	SaveCard   *bool   `json:"save_card"`
}

func (r paymentRequest) toUpdate() wizard.PaymentUpdate {
	u := wizard.PaymentUpdate{
		CardNumber: r.CardNumber,
		Expiry:     r.Expiry,
		CVV:        r.CVV,
		BillingZip: r.BillingZip,
		SaveCard:   r.SaveCard,
	}
	if r.Method != nil {
		m := models.PaymentMethod(*r.Method)
		u.Method = &m
	}
	return u
}

type versionRequest struct {
	Version int64 `json:"version" validate:"required,gte=1"`
}

type detailsView struct {
	Date         string `json:"date,omitempty"`
	StartTime    string `json:"start_time,omitempty"`
	EndTime      string `json:"end_time,omitempty"`
	EventType    string `json:"event_type,omitempty"`
	GuestCount   int    `json:"guest_count,omitempty"`
	ContactName  string `json:"contact_name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`
}

// wizardView is the client view of a session. Card fields other than the
// last four digits are never echoed.
type wizardView struct {
	ID            string                   `json:"id"`
	VenueID       int64                    `json:"venue_id"`
	Step          models.WizardStep        `json:"step"`
	Details       detailsView              `json:"details"`
	PaymentMethod models.PaymentMethod     `json:"payment_method"`
	CardLastFour  string                   `json:"card_last_four,omitempty"`
	SaveCard      bool                     `json:"save_card"`
	Quote         *models.PricingBreakdown `json:"quote,omitempty"`
	HoldAmount    float64                  `json:"hold_amount,omitempty"`
	Confirmation  *models.Confirmation     `json:"confirmation,omitempty"`
	Submitting    bool                     `json:"submitting"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

func newWizardView(s *models.WizardSession, holdAmount func(float64) float64) wizardView {
	r := s.Request
	v := wizardView{
		ID:      s.ID,
		VenueID: s.VenueID,
		Step:    s.Step,
		Details: detailsView{
			StartTime:    r.StartTime,
			EndTime:      r.EndTime,
			EventType:    r.EventType,
			GuestCount:   r.GuestCount,
			ContactName:  r.ContactName,
			ContactEmail: r.ContactEmail,
			ContactPhone: r.ContactPhone,
		},
		PaymentMethod: r.Payment,
		SaveCard:      r.SaveCard,
		Quote:         s.Quote,
		Confirmation:  s.Confirmation,
		Submitting:    s.Submitting,
		UpdatedAt:     s.UpdatedAt,
	}
	if !r.Date.IsZero() {
		v.Details.Date = r.Date.Format(models.DateLayout)
	}
	if r.Payment == models.PaymentMethodNewCard && r.Card.Number != "" {
		v.CardLastFour = r.Card.LastFour()
	}
	if s.Quote != nil && holdAmount != nil {
		v.HoldAmount = holdAmount(s.Quote.Total)
	}
	return v
}

// decodeJSON reads a single JSON object into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON body", errBadRequest)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", errBadRequest, describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
