package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"goeventcity/internal/database"
	"goeventcity/internal/domain"
	"goeventcity/internal/events"
	"goeventcity/internal/metrics"
	"goeventcity/internal/models"
	"goeventcity/internal/payment"
	"goeventcity/internal/pricing"
	"goeventcity/internal/wizard"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	referencePrefix   = "GEC-"
	referenceAttempts = 3
)

// NewReference issues a booking reference: GEC- and 8 upper-case hex chars.
func NewReference() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return referencePrefix + strings.ToUpper(hex[:8])
}

// SubmissionService turns a priced draft into a booking request: it places
// the payment hold, stores the booking and announces it.
type SubmissionService struct {
	repo         domain.Repository
	authorizer   domain.PaymentAuthorizer
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	holdPercent  int
	currency     string
	logger       *zerolog.Logger
	now          func() time.Time
	newReference func() string
}

func NewSubmissionService(
	repo domain.Repository,
	authorizer domain.PaymentAuthorizer,
	eventBus domain.EventPublisher,
	sheetsWorker domain.SyncWorker,
	holdPercent int,
	currency string,
	logger *zerolog.Logger,
) *SubmissionService {
	if holdPercent <= 0 {
		holdPercent = models.DefaultHoldPercent
	}
	return &SubmissionService{
		repo:         repo,
		authorizer:   authorizer,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		holdPercent:  holdPercent,
		currency:     currency,
		logger:       logger,
		now:          time.Now,
		newReference: NewReference,
	}
}

// Submit authorizes the hold and persists the booking. On any error nothing
// is stored and the caller may retry.
func (s *SubmissionService) Submit(ctx context.Context, venue *models.Venue, req models.BookingRequest, breakdown models.PricingBreakdown) (*models.Confirmation, error) {
	if venue == nil {
		return nil, ErrVenueNotFound
	}
	if err := wizard.ValidatePayment(req); err != nil {
		return nil, err
	}

	hold := pricing.HoldAmount(breakdown.Total, s.holdPercent)
	reference := s.newReference()

	auth, err := s.authorize(ctx, reference, hold, req)
	if err != nil {
		outcome := "error"
		if errors.Is(err, payment.ErrPaymentDeclined) {
			outcome = "declined"
		}
		metrics.IncSubmission(outcome)
		s.logger.Warn().Err(err).Str("reference", reference).Float64("hold", hold).Msg("Payment authorization failed")
		return nil, fmt.Errorf("authorize hold: %w", err)
	}

	// Once the hold is placed the booking is stored regardless of the caller.
	ctx = context.WithoutCancel(ctx)

	booking := newBooking(venue, req, breakdown, auth, hold)
	if err := s.persist(ctx, booking, reference); err != nil {
		metrics.IncSubmission("not_stored")
		// Удержание не списывается и истечет само
		s.logger.Error().Err(err).Str("authorization_id", auth.ID).Int64("venue_id", venue.ID).Msg("Booking not stored after authorization")
		return nil, err
	}

	metrics.IncSubmission("ok")
	s.logger.Info().
		Str("reference", booking.Reference).
		Int64("venue_id", venue.ID).
		Float64("total", booking.Total).
		Float64("hold", hold).
		Msg("Booking request submitted")

	publishBookingEvent(s.eventBus, s.logger, events.EventBookingRequested, booking, "customer")
	enqueueBookingSync(ctx, s.sheetsWorker, s.logger, booking, models.SyncTaskAppend)

	return &models.Confirmation{
		Reference:         booking.Reference,
		HoldAmount:        hold,
		Total:             booking.Total,
		ResponseTimeHours: venue.ResponseTimeHours,
		AuthorizationID:   auth.ID,
		SubmittedAt:       s.now(),
	}, nil
}

// authorize places the hold. A zero hold (free venue or a total too small to
// round to a unit) needs no authorizer call.
func (s *SubmissionService) authorize(ctx context.Context, reference string, hold float64, req models.BookingRequest) (*domain.Authorization, error) {
	if hold == 0 {
		s.logger.Debug().Str("reference", reference).Msg("Zero hold, authorization skipped")
		return &domain.Authorization{Authorized: s.now()}, nil
	}

	started := time.Now()
	defer func() { metrics.ObserveAuthorization(time.Since(started).Seconds()) }()

	return s.authorizer.Authorize(ctx, domain.AuthorizationRequest{
		Reference: reference,
		Amount:    hold,
		Currency:  s.currency,
		Method:    req.Payment,
		Card:      req.Card,
		Email:     req.ContactEmail,
	})
}

// persist stores the booking, drawing a new reference on the rare collision.
func (s *SubmissionService) persist(ctx context.Context, booking *models.Booking, reference string) error {
	var err error
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		if attempt > 0 {
			reference = s.newReference()
		}
		booking.Reference = reference
		err = s.repo.CreateBookingWithLock(ctx, booking)
		if !errors.Is(err, database.ErrDuplicateReference) {
			return err
		}
	}
	return err
}

func newBooking(venue *models.Venue, req models.BookingRequest, breakdown models.PricingBreakdown, auth *domain.Authorization, hold float64) *models.Booking {
	startsAt, endsAt := BookingWindow(req.Date, req.StartTime, breakdown.Hours)
	return &models.Booking{
		VenueID:         venue.ID,
		VenueName:       venue.Name,
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		StartsAt:        startsAt,
		EndsAt:          endsAt,
		Hours:           breakdown.Hours,
		EventType:       req.EventType,
		GuestCount:      req.GuestCount,
		ContactName:     req.ContactName,
		ContactEmail:    req.ContactEmail,
		ContactPhone:    req.ContactPhone,
		PaymentMethod:   req.Payment,
		CardLastFour:    cardLastFour(req),
		AuthorizationID: auth.ID,
		HoldAmount:      hold,
		Total:           breakdown.Total,
		Status:          models.StatusRequested,
	}
}

func cardLastFour(req models.BookingRequest) string {
	if req.Payment != models.PaymentMethodNewCard {
		return ""
	}
	return req.Card.LastFour()
}

// BookingWindow returns [date+start, date+start+hours). Unparsable start
// times fall back to midnight; callers validate them first.
func BookingWindow(date time.Time, startTime string, hours int) (time.Time, time.Time) {
	start, _ := pricing.ParseHour(startTime)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	startsAt := day.Add(time.Duration(start) * time.Hour)
	return startsAt, startsAt.Add(time.Duration(hours) * time.Hour)
}
