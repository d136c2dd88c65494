package bot

import (
	"context"
	"errors"
	"time"

	"goeventcity/internal/config"
	"goeventcity/internal/domain"
	"goeventcity/internal/logging"
	"goeventcity/internal/models"
	"goeventcity/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const updateTimeout = 30 * time.Second

// Wizard is the booking wizard the bot drives, one session per chat user.
type Wizard interface {
	StartWithID(ctx context.Context, id string, venueID int64) (*models.WizardSession, error)
	Get(ctx context.Context, id string) (*models.WizardSession, error)
	UpdateDetails(ctx context.Context, id string, u wizard.DetailsUpdate) (*models.WizardSession, error)
	UpdatePayment(ctx context.Context, id string, u wizard.PaymentUpdate) (*models.WizardSession, error)
	SetMeta(ctx context.Context, id, key, value string) (*models.WizardSession, error)
	RequestQuote(ctx context.Context, id string) (*models.WizardSession, error)
	Proceed(ctx context.Context, id string) (*models.WizardSession, error)
	Back(ctx context.Context, id string) (*models.WizardSession, error)
	Modify(ctx context.Context, id string) (*models.WizardSession, error)
	Submit(ctx context.Context, id string) (*models.WizardSession, error)
	Cancel(ctx context.Context, id string) error
	HoldAmount(total float64) float64
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Bot struct {
	tgService domain.TelegramService
	config    config.TelegramConfig
	wizards   Wizard
	venues    domain.VenueService
	limiter   RateLimiter
	metrics   *Metrics
	logger    *zerolog.Logger
}

func NewBot(
	tgService domain.TelegramService,
	cfg config.TelegramConfig,
	wizards Wizard,
	venues domain.VenueService,
	limiter RateLimiter,
	metrics *Metrics,
	logger *zerolog.Logger,
) (*Bot, error) {
	if tgService == nil {
		return nil, errors.New("telegram service is required")
	}
	if wizards == nil || venues == nil {
		return nil, errors.New("wizard and venue services are required")
	}

	return &Bot{
		tgService: tgService,
		config:    cfg,
		wizards:   wizards,
		venues:    venues,
		limiter:   limiter,
		metrics:   metrics,
		logger:    logging.Component(logger, "bot"),
	}, nil
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tgService.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tgService.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	// Создаем контекст для обработки каждого обновления
	updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	l := b.logger.With().Str("request_id", uuid.New().String()).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		var userID, chatID int64
		kind := "other"
		switch {
		case update.Message != nil && update.Message.From != nil:
			userID, chatID, kind = update.Message.From.ID, update.Message.Chat.ID, "message"
		case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
			userID, chatID, kind = update.CallbackQuery.From.ID, update.CallbackQuery.Message.Chat.ID, "callback"
		}
		if b.metrics != nil {
			b.metrics.UpdatesTotal.WithLabelValues(kind).Inc()
		}
		if userID == 0 {
			return
		}

		if !b.allowUpdate(updateCtx, userID) {
			if update.Message != nil {
				b.sendMessage(chatID, "⚠️ You are sending messages too fast. Please wait a moment.")
			}
			return
		}

		if update.CallbackQuery != nil {
			b.handleCallbackQuery(updateCtx, update.CallbackQuery)
			return
		}
		b.handleMessage(updateCtx, update.Message)
	})
}
