package service

import (
	"context"
	"io"
	"time"

	"goeventcity/internal/domain"
	"goeventcity/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetActiveVenues(ctx context.Context) ([]*models.Venue, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Venue), args.Error(1)
}
func (m *mockRepo) GetVenueByID(ctx context.Context, id int64) (*models.Venue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Venue), args.Error(1)
}
func (m *mockRepo) SyncVenues(ctx context.Context, venues []*models.Venue) error {
	return m.Called(ctx, venues).Error(0)
}
func (m *mockRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) GetBookingByReference(ctx context.Context, ref string) (*models.Booking, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) CreateBookingWithLock(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}
func (m *mockRepo) UpdateBookingStatusWithVersion(ctx context.Context, id, v int64, s string) error {
	return m.Called(ctx, id, v, s).Error(0)
}
func (m *mockRepo) GetBookingsByDateRange(ctx context.Context, s, e time.Time) ([]*models.Booking, error) {
	args := m.Called(ctx, s, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockRepo) CheckAvailability(ctx context.Context, id int64, s, e time.Time) (bool, error) {
	args := m.Called(ctx, id, s, e)
	return args.Bool(0), args.Error(1)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et string, p interface{}) error { return m.Called(et, p).Error(0) }

type mockWorker struct {
	mock.Mock
}

func (m *mockWorker) EnqueueTask(ctx context.Context, tt string, b *models.Booking, s string) error {
	return m.Called(ctx, tt, b, s).Error(0)
}

type mockAuthorizer struct {
	mock.Mock
}

func (m *mockAuthorizer) Authorize(ctx context.Context, req domain.AuthorizationRequest) (*domain.Authorization, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Authorization), args.Error(1)
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func testVenue() *models.Venue {
	return &models.Venue{
		ID:                7,
		Name:              "Rooftop Loft",
		PricePerHour:      100,
		Capacity:          80,
		ResponseTimeHours: 24,
		IsActive:          true,
		Fees: []models.Fee{
			{Kind: models.FeeKindCleaning, Name: "Cleaning Fee", Amount: 50},
			{Kind: models.FeeKindSecurityDeposit, Name: "Security Deposit", Amount: 200},
		},
	}
}

func ptr[T any](v T) *T { return &v }
