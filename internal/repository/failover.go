package repository

import (
	"context"
	"sync/atomic"
	"time"

	"goeventcity/internal/domain"
	"goeventcity/internal/models"

	"github.com/rs/zerolog"
)

// FailoverStateRepository falls back to a secondary store while the primary
// is failing and retries the primary once a minute.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

const recoveryInterval = time.Minute

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStateRepository) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
	}
	r.lastCheck.Store(time.Now().UnixNano())
}

// usePrimary reports whether the primary should be tried for this call.
func (r *FailoverStateRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverStateRepository) primaryOK() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary state repository recovered")
	}
}

func (r *FailoverStateRepository) GetSession(ctx context.Context, id string) (*models.WizardSession, error) {
	if r.usePrimary() {
		session, err := r.primary.GetSession(ctx, id)
		if err == nil {
			r.primaryOK()
			return session, nil
		}
		r.markDown(err)
	}

	return r.fallback.GetSession(ctx, id)
}

func (r *FailoverStateRepository) SetSession(ctx context.Context, session *models.WizardSession) error {
	if r.usePrimary() {
		err := r.primary.SetSession(ctx, session)
		if err == nil {
			r.primaryOK()
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetSession(ctx, session)
}

func (r *FailoverStateRepository) ClearSession(ctx context.Context, id string) error {
	if r.usePrimary() {
		err := r.primary.ClearSession(ctx, id)
		if err == nil {
			r.primaryOK()
			// Сессия могла попасть в резервное хранилище во время сбоя
			_ = r.fallback.ClearSession(ctx, id)
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.ClearSession(ctx, id)
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.primaryOK()
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
