package payment

import (
	"context"
	"time"

	"goeventcity/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SimulatedAuthorizer approves every hold after a fixed delay. It stands in
// for a real gateway in development and demos.
type SimulatedAuthorizer struct {
	delay  time.Duration
	logger *zerolog.Logger
	now    func() time.Time
}

func NewSimulatedAuthorizer(delay time.Duration, logger *zerolog.Logger) *SimulatedAuthorizer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SimulatedAuthorizer{
		delay:  delay,
		logger: logger,
		now:    time.Now,
	}
}

func (a *SimulatedAuthorizer) Authorize(ctx context.Context, req domain.AuthorizationRequest) (*domain.Authorization, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if a.delay > 0 {
		timer := time.NewTimer(a.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	auth := &domain.Authorization{
		ID:         "sim_" + uuid.New().String(),
		Amount:     req.Amount,
		Authorized: a.now(),
	}

	a.logger.Info().
		Str("reference", req.Reference).
		Str("authorization_id", auth.ID).
		Float64("amount", req.Amount).
		Str("method", string(req.Method)).
		Msg("Simulated hold authorized")

	return auth, nil
}
