// Package payment holds the PaymentAuthorizer implementations used on
// booking submission.
package payment

import (
	"errors"
	"fmt"
	"math"

	"goeventcity/internal/config"
	"goeventcity/internal/domain"

	"github.com/rs/zerolog"
)

var (
	ErrPaymentDeclined = errors.New("payment declined")
	ErrInvalidAmount   = errors.New("invalid authorization amount")
)

// NewAuthorizer builds the authorizer selected by cfg.Provider.
func NewAuthorizer(cfg config.PaymentConfig, logger *zerolog.Logger) (domain.PaymentAuthorizer, error) {
	switch cfg.Provider {
	case config.PaymentProviderSimulated, "":
		return NewSimulatedAuthorizer(cfg.SimulatedDelay(), logger), nil
	case config.PaymentProviderStripe:
		return NewStripeAuthorizer(cfg.Stripe, cfg.Currency, logger), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

// validateRequest rejects negative amounts. A zero hold is valid.
func validateRequest(req domain.AuthorizationRequest) error {
	if req.Amount < 0 || math.IsNaN(req.Amount) {
		return fmt.Errorf("%w: %.2f", ErrInvalidAmount, req.Amount)
	}
	return nil
}
