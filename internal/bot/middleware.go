package bot

import (
	"context"
	"strconv"
	"time"

	"goeventcity/internal/models"
)

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.ErrorsTotal.Inc()
			}
			b.logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

// allowUpdate applies the per-user message limit. Limiter failures let the
// update through.
func (b *Bot) allowUpdate(ctx context.Context, userID int64) bool {
	if b.limiter == nil {
		return true
	}

	limit := b.config.RateLimitMessages
	if limit <= 0 {
		limit = models.RateLimitMessages
	}
	window := b.config.RateLimitWindow
	if window <= 0 {
		window = models.RateLimitWindow
	}

	allowed, err := b.limiter.CheckRateLimit(ctx, "tg:"+strconv.FormatInt(userID, 10), limit, time.Duration(window)*time.Second)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Rate limit check failed")
		return true
	}
	if !allowed {
		b.logger.Warn().Int64("user_id", userID).Msg("Rate limit exceeded")
		if b.metrics != nil {
			b.metrics.RateLimited.Inc()
		}
	}
	return allowed
}
