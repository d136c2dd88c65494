package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goeventcity/internal/database"
	"goeventcity/internal/domain"
	"goeventcity/internal/events"
	"goeventcity/internal/models"

	"github.com/rs/zerolog"
)

// BookingService handles the venue's answer to a submitted request.
type BookingService struct {
	repo         domain.Repository
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	logger       *zerolog.Logger
}

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, sheetsWorker domain.SyncWorker, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:         repo,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		logger:       logger,
	}
}

func (s *BookingService) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	booking, err := s.repo.GetBookingByReference(ctx, reference)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, reference)
	}
	return booking, err
}

func (s *BookingService) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return s.repo.GetBookingsByDateRange(ctx, start, end)
}

// ConfirmBooking accepts a requested booking.
func (s *BookingService) ConfirmBooking(ctx context.Context, reference string, version int64) (*models.Booking, error) {
	return s.transition(ctx, reference, version, models.StatusConfirmed, events.EventBookingConfirmed, models.StatusRequested)
}

// DeclineBooking rejects a requested booking.
func (s *BookingService) DeclineBooking(ctx context.Context, reference string, version int64) (*models.Booking, error) {
	return s.transition(ctx, reference, version, models.StatusDeclined, events.EventBookingDeclined, models.StatusRequested)
}

// CancelBooking cancels a requested or confirmed booking and frees its window.
func (s *BookingService) CancelBooking(ctx context.Context, reference string, version int64) (*models.Booking, error) {
	return s.transition(ctx, reference, version, models.StatusCancelled, events.EventBookingCancelled, models.StatusRequested, models.StatusConfirmed)
}

func (s *BookingService) transition(ctx context.Context, reference string, version int64, status, eventType string, from ...string) (*models.Booking, error) {
	booking, err := s.GetBookingByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	if !statusIn(booking.Status, from) {
		return nil, fmt.Errorf("%w: %s is %s", ErrInvalidStatus, reference, booking.Status)
	}
	// Версия клиента должна совпадать с текущей
	if version != booking.Version {
		return nil, database.ErrConcurrentModification
	}

	if err := s.repo.UpdateBookingStatusWithVersion(ctx, booking.ID, version, status); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("reference", reference).Str("status", status).Msg("Booking status changed")
	s.publishEvent(eventType, updated, "venue")
	s.enqueueSync(ctx, updated, models.SyncTaskUpdateStatus)
	return updated, nil
}

func statusIn(status string, allowed []string) bool {
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, changedBy string) {
	publishBookingEvent(s.eventBus, s.logger, eventType, booking, changedBy)
}

func (s *BookingService) enqueueSync(ctx context.Context, booking *models.Booking, taskType string) {
	enqueueBookingSync(ctx, s.sheetsWorker, s.logger, booking, taskType)
}

func publishBookingEvent(bus domain.EventPublisher, logger *zerolog.Logger, eventType string, booking *models.Booking, changedBy string) {
	if bus == nil {
		return
	}
	if err := bus.PublishJSON(eventType, events.NewBookingPayload(booking, changedBy)); err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Str("reference", booking.Reference).Msg("publish event error")
	}
}

func enqueueBookingSync(ctx context.Context, worker domain.SyncWorker, logger *zerolog.Logger, booking *models.Booking, taskType string) {
	if worker == nil {
		return
	}

	var status string
	if taskType == models.SyncTaskUpdateStatus {
		status = booking.Status
	}

	if err := worker.EnqueueTask(ctx, taskType, booking, status); err != nil {
		logger.Error().Err(err).Str("reference", booking.Reference).Str("task", taskType).Msg("sheets enqueue error")
	}
}
