package domain

import (
	"context"
	"time"

	"goeventcity/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Repository interface {
	GetActiveVenues(ctx context.Context) ([]*models.Venue, error)
	GetVenueByID(ctx context.Context, id int64) (*models.Venue, error)
	SyncVenues(ctx context.Context, venues []*models.Venue) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	CreateBookingWithLock(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatusWithVersion(ctx context.Context, id int64, version int64, status string) error
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	CheckAvailability(ctx context.Context, venueID int64, startsAt, endsAt time.Time) (bool, error)
}

// StateRepository хранит сессии мастера бронирования
type StateRepository interface {
	GetSession(ctx context.Context, id string) (*models.WizardSession, error)
	SetSession(ctx context.Context, session *models.WizardSession) error
	ClearSession(ctx context.Context, id string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// AuthorizationRequest describes a card hold.
type AuthorizationRequest struct {
	Reference string
	Amount    float64
	Currency  string
	Method    models.PaymentMethod
	Card      models.CardDetails
	Email     string
}

type Authorization struct {
	ID         string
	Amount     float64
	Authorized time.Time
}

// PaymentAuthorizer places a hold on the customer's payment method.
// Implementations must honor ctx cancellation.
type PaymentAuthorizer interface {
	Authorize(ctx context.Context, req AuthorizationRequest) (*Authorization, error)
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

type SheetsWriter interface {
	AppendBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, reference string, status string) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, booking *models.Booking, status string) error
}

type TelegramService interface {
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendMarkdown(chatID int64, text string) (tgbotapi.Message, error)
	SendWithButtons(chatID int64, text string, rows ...[]tgbotapi.InlineKeyboardButton) (tgbotapi.Message, error)
	EditWithButtons(chatID int64, messageID int, text string, rows ...[]tgbotapi.InlineKeyboardButton) (tgbotapi.Message, error)
	DeleteMessage(chatID int64, messageID int) error
	AnswerCallback(callbackID string, text string) error
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

type VenueService interface {
	GetActiveVenues(ctx context.Context) ([]*models.Venue, error)
	GetVenueByID(ctx context.Context, id int64) (*models.Venue, error)
}

type BookingService interface {
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	ConfirmBooking(ctx context.Context, reference string, version int64) (*models.Booking, error)
	DeclineBooking(ctx context.Context, reference string, version int64) (*models.Booking, error)
	CancelBooking(ctx context.Context, reference string, version int64) (*models.Booking, error)
}
