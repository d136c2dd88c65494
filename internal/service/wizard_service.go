package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"goeventcity/internal/database"
	"goeventcity/internal/domain"
	"goeventcity/internal/metrics"
	"goeventcity/internal/models"
	"goeventcity/internal/pricing"
	"goeventcity/internal/wizard"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const sessionLockStripes = 64

// QuoteRequest is a stateless quote query.
type QuoteRequest struct {
	VenueID    int64
	Date       time.Time
	StartTime  string
	EndTime    string
	EventType  string
	GuestCount int
}

type QuoteResult struct {
	Venue      *models.Venue
	Breakdown  models.PricingBreakdown
	HoldAmount float64
	Available  bool
}

// WizardService drives wizard sessions for every front-end. Sessions live in
// the state repository; a missing or expired one is ErrSessionNotFound.
type WizardService struct {
	states         domain.StateRepository
	venues         domain.VenueService
	repo           domain.Repository
	submitter      *SubmissionService
	holdPercent    int
	maxBookingDays int
	logger         *zerolog.Logger
	now            func() time.Time
	newID          func() string
	locks          [sessionLockStripes]sync.Mutex
}

func NewWizardService(
	states domain.StateRepository,
	venues domain.VenueService,
	repo domain.Repository,
	submitter *SubmissionService,
	holdPercent, maxBookingDays int,
	logger *zerolog.Logger,
) *WizardService {
	if holdPercent <= 0 {
		holdPercent = models.DefaultHoldPercent
	}
	if maxBookingDays <= 0 {
		maxBookingDays = 365
	}
	return &WizardService{
		states:         states,
		venues:         venues,
		repo:           repo,
		submitter:      submitter,
		holdPercent:    holdPercent,
		maxBookingDays: maxBookingDays,
		logger:         logger,
		now:            time.Now,
		newID:          uuid.NewString,
	}
}

// Start opens a new session for an active venue.
func (s *WizardService) Start(ctx context.Context, venueID int64) (*models.WizardSession, error) {
	return s.StartWithID(ctx, s.newID(), venueID)
}

// StartWithID opens a session under a caller-chosen id, replacing any
// previous session with that id.
func (s *WizardService) StartWithID(ctx context.Context, id string, venueID int64) (*models.WizardSession, error) {
	if _, err := s.venues.GetVenueByID(ctx, venueID); err != nil {
		return nil, err
	}

	unlock := s.lock(id)
	defer unlock()

	session := wizard.New(id, venueID, s.now())
	if err := s.states.SetSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	metrics.IncTransition(string(models.StepDetails))
	s.logger.Debug().Str("session_id", id).Int64("venue_id", venueID).Msg("Wizard started")
	return session, nil
}

func (s *WizardService) Get(ctx context.Context, id string) (*models.WizardSession, error) {
	session, err := s.states.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

func (s *WizardService) UpdateDetails(ctx context.Context, id string, u wizard.DetailsUpdate) (*models.WizardSession, error) {
	return s.mutate(ctx, id, func(session *models.WizardSession) error {
		return wizard.SetDetails(session, u)
	})
}

func (s *WizardService) UpdatePayment(ctx context.Context, id string, u wizard.PaymentUpdate) (*models.WizardSession, error) {
	return s.mutate(ctx, id, func(session *models.WizardSession) error {
		return wizard.SetPayment(session, u)
	})
}

// SetMeta stores front-end scratch data on the session.
func (s *WizardService) SetMeta(ctx context.Context, id, key, value string) (*models.WizardSession, error) {
	return s.mutate(ctx, id, func(session *models.WizardSession) error {
		session.SetMeta(key, value)
		return nil
	})
}

// RequestQuote prices the draft, checks the window is free and moves to
// review.
func (s *WizardService) RequestQuote(ctx context.Context, id string) (*models.WizardSession, error) {
	return s.mutate(ctx, id, func(session *models.WizardSession) error {
		venue, err := s.venues.GetVenueByID(ctx, session.VenueID)
		if err != nil {
			return err
		}
		if err := s.validateDate(session.Request.Date); err != nil {
			metrics.IncQuote("invalid")
			return err
		}

		breakdown, err := wizard.Quote(session.Request, venue)
		if err != nil {
			metrics.IncQuote("invalid")
			return err
		}
		if err := s.ensureAvailable(ctx, venue.ID, session.Request, breakdown); err != nil {
			return err
		}

		step, err := wizard.RequestQuote(session, venue)
		if err != nil {
			return err
		}
		metrics.IncQuote("ok")
		metrics.IncTransition(string(step))
		return nil
	})
}

func (s *WizardService) Proceed(ctx context.Context, id string) (*models.WizardSession, error) {
	return s.transition(ctx, id, wizard.Proceed)
}

func (s *WizardService) Back(ctx context.Context, id string) (*models.WizardSession, error) {
	return s.transition(ctx, id, wizard.Back)
}

func (s *WizardService) Modify(ctx context.Context, id string) (*models.WizardSession, error) {
	return s.transition(ctx, id, wizard.Modify)
}

// Submit places the hold and stores the booking. The session is marked as
// submitting while the authorizer runs so that a second submit is rejected;
// on failure it stays in payment and may be retried.
func (s *WizardService) Submit(ctx context.Context, id string) (*models.WizardSession, error) {
	var (
		draft models.WizardSession
		venue *models.Venue
	)
	_, err := s.mutate(ctx, id, func(session *models.WizardSession) error {
		if err := wizard.BeginSubmit(session); err != nil {
			return err
		}
		v, err := s.venues.GetVenueByID(ctx, session.VenueID)
		if err != nil {
			return err
		}
		venue = v
		draft = *session
		return nil
	})
	if err != nil {
		return nil, err
	}

	confirmation, submitErr := s.submitter.Submit(ctx, venue, draft.Request, *draft.Quote)

	// The outcome must be recorded even if the caller has gone away.
	bg := context.WithoutCancel(ctx)

	unlock := s.lock(id)
	defer unlock()

	// Сессия могла истечь за время авторизации
	session, err := s.states.GetSession(bg, id)
	if err != nil || session == nil {
		session = &draft
	}

	if submitErr != nil {
		wizard.Abort(session)
		s.save(bg, session)
		return session, submitErr
	}

	step, err := wizard.Complete(session, *confirmation)
	if err != nil {
		return nil, err
	}
	s.save(bg, session)
	metrics.IncTransition(string(step))
	return session, nil
}

// Cancel discards the session and its draft.
func (s *WizardService) Cancel(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()

	session, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if session.Submitting {
		return wizard.ErrSubmissionInProgress
	}
	if err := s.states.ClearSession(ctx, id); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.logger.Debug().Str("session_id", id).Str("step", string(session.Step)).Msg("Wizard cancelled")
	return nil
}

// Quote prices a request without a session.
func (s *WizardService) Quote(ctx context.Context, q QuoteRequest) (*QuoteResult, error) {
	venue, err := s.venues.GetVenueByID(ctx, q.VenueID)
	if err != nil {
		return nil, err
	}
	if err := s.validateDate(q.Date); err != nil {
		metrics.IncQuote("invalid")
		return nil, err
	}
	req := models.BookingRequest{
		VenueID:    q.VenueID,
		Date:       q.Date,
		StartTime:  q.StartTime,
		EndTime:    q.EndTime,
		EventType:  q.EventType,
		GuestCount: q.GuestCount,
	}
	breakdown, err := wizard.Quote(req, venue)
	if err != nil {
		metrics.IncQuote("invalid")
		return nil, err
	}

	startsAt, endsAt := BookingWindow(req.Date, req.StartTime, breakdown.Hours)
	available, err := s.repo.CheckAvailability(ctx, venue.ID, startsAt, endsAt)
	if err != nil {
		return nil, err
	}
	metrics.IncQuote("ok")

	return &QuoteResult{
		Venue:      venue,
		Breakdown:  breakdown,
		HoldAmount: pricing.HoldAmount(breakdown.Total, s.holdPercent),
		Available:  available,
	}, nil
}

// HoldAmount is the share of total authorized on submission.
func (s *WizardService) HoldAmount(total float64) float64 {
	return pricing.HoldAmount(total, s.holdPercent)
}

func (s *WizardService) validateDate(date time.Time) error {
	if date.IsZero() {
		return nil
	}
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	if day.Before(today) {
		return fmt.Errorf("%w: %w", wizard.ErrInvalidQuoteInput, database.ErrPastDate)
	}
	if day.After(today.AddDate(0, 0, s.maxBookingDays)) {
		return fmt.Errorf("%w: %w", wizard.ErrInvalidQuoteInput, database.ErrDateTooFar)
	}
	return nil
}

func (s *WizardService) ensureAvailable(ctx context.Context, venueID int64, req models.BookingRequest, breakdown models.PricingBreakdown) error {
	startsAt, endsAt := BookingWindow(req.Date, req.StartTime, breakdown.Hours)
	available, err := s.repo.CheckAvailability(ctx, venueID, startsAt, endsAt)
	if err != nil {
		return err
	}
	if !available {
		metrics.IncQuote("unavailable")
		return database.ErrNotAvailable
	}
	return nil
}

func (s *WizardService) transition(ctx context.Context, id string, fn func(*models.WizardSession) (models.WizardStep, error)) (*models.WizardSession, error) {
	return s.mutate(ctx, id, func(session *models.WizardSession) error {
		step, err := fn(session)
		if err != nil {
			return err
		}
		metrics.IncTransition(string(step))
		return nil
	})
}

// mutate loads, changes and saves a session under its lock. A failed change
// is not saved.
func (s *WizardService) mutate(ctx context.Context, id string, fn func(*models.WizardSession) error) (*models.WizardSession, error) {
	unlock := s.lock(id)
	defer unlock()

	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	session.UpdatedAt = s.now()
	if err := s.states.SetSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

func (s *WizardService) save(ctx context.Context, session *models.WizardSession) {
	session.UpdatedAt = s.now()
	if err := s.states.SetSession(ctx, session); err != nil {
		s.logger.Error().Err(err).Str("session_id", session.ID).Msg("Failed to save session")
	}
}

func (s *WizardService) lock(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	m := &s.locks[h.Sum32()%sessionLockStripes]
	m.Lock()
	return m.Unlock
}

// IsUserError reports whether err is caused by the caller's input or the
// session state rather than by infrastructure.
func IsUserError(err error) bool {
	for _, target := range []error{
		ErrSessionNotFound, ErrVenueNotFound, ErrBookingNotFound, ErrInvalidStatus,
		wizard.ErrInvalidQuoteInput, wizard.ErrInvalidPaymentDetails,
		wizard.ErrInvalidTransition, wizard.ErrSubmissionInProgress,
		database.ErrNotAvailable, database.ErrConcurrentModification,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
