package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"goeventcity/internal/config"
	"goeventcity/internal/domain"
	"goeventcity/internal/models"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeAuthorizer places the hold as a manual-capture PaymentIntent.
// Capture happens once the venue confirms and is outside this service.
type StripeAuthorizer struct {
	api         *client.API
	currency    string
	savedMethod string
	logger      *zerolog.Logger
}

func NewStripeAuthorizer(cfg config.StripeConfig, currency string, logger *zerolog.Logger) *StripeAuthorizer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	var backends *stripe.Backends
	if cfg.APIURL != "" {
		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:               stripe.String(cfg.APIURL),
			MaxNetworkRetries: stripe.Int64(0),
		})
		backends = &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, backends)

	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	return &StripeAuthorizer{
		api:         api,
		currency:    strings.ToLower(currency),
		savedMethod: cfg.SavedPaymentMethod,
		logger:      logger,
	}
}

func (a *StripeAuthorizer) Authorize(ctx context.Context, req domain.AuthorizationRequest) (*domain.Authorization, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	// Stripe has no zero-amount intents; nothing to hold.
	if toMinorUnits(req.Amount) == 0 {
		return &domain.Authorization{Authorized: time.Now()}, nil
	}

	methodID, err := a.paymentMethod(ctx, req)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(toMinorUnits(req.Amount)),
		Currency:           stripe.String(a.currency),
		CaptureMethod:      stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		PaymentMethod:      stripe.String(methodID),
		PaymentMethodTypes: stripe.StringSlice([]string{string(stripe.PaymentMethodTypeCard)}),
		Confirm:            stripe.Bool(true),
		Description:        stripe.String("Booking hold " + req.Reference),
	}
	params.Context = ctx
	params.AddMetadata("reference", req.Reference)
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}

	pi, err := a.api.PaymentIntents.New(params)
	if err != nil {
		return nil, a.mapError(req.Reference, err)
	}

	if pi.Status != stripe.PaymentIntentStatusRequiresCapture && pi.Status != stripe.PaymentIntentStatusSucceeded {
		a.logger.Warn().
			Str("reference", req.Reference).
			Str("payment_intent", pi.ID).
			Str("status", string(pi.Status)).
			Msg("Payment intent not authorized")
		return nil, fmt.Errorf("%w: payment intent status %s", ErrPaymentDeclined, pi.Status)
	}

	a.logger.Info().
		Str("reference", req.Reference).
		Str("payment_intent", pi.ID).
		Float64("amount", req.Amount).
		Msg("Stripe hold authorized")

	return &domain.Authorization{
		ID:         pi.ID,
		Amount:     req.Amount,
		Authorized: time.Now(),
	}, nil
}

func (a *StripeAuthorizer) paymentMethod(ctx context.Context, req domain.AuthorizationRequest) (string, error) {
	if req.Method == models.PaymentMethodSavedCard {
		return a.savedMethod, nil
	}

	month, year, err := parseExpiry(req.Card.Expiry)
	if err != nil {
		return "", err
	}

	params := &stripe.PaymentMethodParams{
		Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(req.Card.Number),
			ExpMonth: stripe.Int64(month),
			ExpYear:  stripe.Int64(year),
			CVC:      stripe.String(req.Card.CVV),
		},
		BillingDetails: &stripe.PaymentMethodBillingDetailsParams{
			Address: &stripe.AddressParams{
				PostalCode: stripe.String(req.Card.BillingZip),
			},
		},
	}
	params.Context = ctx

	pm, err := a.api.PaymentMethods.New(params)
	if err != nil {
		return "", a.mapError(req.Reference, err)
	}
	return pm.ID, nil
}

func (a *StripeAuthorizer) mapError(reference string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
		a.logger.Info().
			Str("reference", reference).
			Str("code", string(stripeErr.Code)).
			Str("decline_code", string(stripeErr.DeclineCode)).
			Msg("Card declined")
		return fmt.Errorf("%w: %s", ErrPaymentDeclined, stripeErr.Msg)
	}
	a.logger.Error().Err(err).Str("reference", reference).Msg("Stripe request failed")
	return fmt.Errorf("stripe authorization: %w", err)
}

// parseExpiry разбирает срок действия карты в формате MM/YY
func parseExpiry(expiry string) (month, year int64, err error) {
	mm, yy, ok := strings.Cut(strings.TrimSpace(expiry), "/")
	if !ok {
		return 0, 0, fmt.Errorf("%w: expiry must be MM/YY", ErrPaymentDeclined)
	}
	month, err = strconv.ParseInt(strings.TrimSpace(mm), 10, 64)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w: invalid expiry month", ErrPaymentDeclined)
	}
	year, err = strconv.ParseInt(strings.TrimSpace(yy), 10, 64)
	if err != nil || year < 0 {
		return 0, 0, fmt.Errorf("%w: invalid expiry year", ErrPaymentDeclined)
	}
	if year < 100 {
		year += 2000
	}
	return month, year, nil
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
