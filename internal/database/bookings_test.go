package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"goeventcity/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)

func newBooking(ref string, venueID int64, startHour, endHour int) *models.Booking {
	starts := testDay.Add(time.Duration(startHour) * time.Hour)
	ends := testDay.Add(time.Duration(endHour) * time.Hour)
	return &models.Booking{
		Reference:     ref,
		VenueID:       venueID,
		VenueName:     "Rooftop Loft",
		Date:          testDay,
		StartTime:     fmt.Sprintf("%02d:00", startHour%24),
		EndTime:       fmt.Sprintf("%02d:00", endHour%24),
		StartsAt:      starts,
		EndsAt:        ends,
		Hours:         endHour - startHour,
		EventType:     "Birthday",
		GuestCount:    40,
		ContactName:   "Ada Lovelace",
		ContactEmail:  "ada@example.com",
		ContactPhone:  "+1 555 0100",
		PaymentMethod: models.PaymentMethodNewCard,
		CardLastFour:  "4242",
		HoldAmount:    150,
		Total:         750,
	}
}

func TestCreateBookingWithLock(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedVenues(t, db)

	b := newBooking("GEC-00000001", 1, 18, 23)
	require.NoError(t, db.CreateBookingWithLock(ctx, b))
	assert.NotZero(t, b.ID)
	assert.Equal(t, int64(1), b.Version)
	assert.Equal(t, models.StatusRequested, b.Status)

	got, err := db.GetBookingByReference(ctx, "GEC-00000001")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, "Birthday", got.EventType)
	assert.Equal(t, models.PaymentMethodNewCard, got.PaymentMethod)
	assert.Equal(t, "4242", got.CardLastFour)
	assert.True(t, got.StartsAt.Equal(b.StartsAt))
	assert.True(t, got.EndsAt.Equal(b.EndsAt))
	assert.True(t, got.Date.Equal(testDay))

	byID, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "GEC-00000001", byID.Reference)
}

func TestCreateBookingWithLock_Overlap(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedVenues(t, db)

	require.NoError(t, db.CreateBookingWithLock(ctx, newBooking("GEC-A", 1, 18, 23)))

	tests := []struct {
		name    string
		booking *models.Booking
		wantErr error
	}{
		{"same window", newBooking("GEC-B", 1, 18, 23), ErrNotAvailable},
		{"inner window", newBooking("GEC-C", 1, 19, 20), ErrNotAvailable},
		{"starts inside", newBooking("GEC-D", 1, 22, 26), ErrNotAvailable},
		{"adjacent before", newBooking("GEC-E", 1, 15, 18), nil},
		{"adjacent after", newBooking("GEC-F", 1, 23, 25), nil},
		{"other venue", newBooking("GEC-G", 2, 18, 23), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.CreateBookingWithLock(ctx, tt.booking)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCreateBookingWithLock_DuplicateReference(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedVenues(t, db)

	require.NoError(t, db.CreateBookingWithLock(ctx, newBooking("GEC-DUP", 1, 10, 12)))
	err := db.CreateBookingWithLock(ctx, newBooking("GEC-DUP", 1, 14, 16))
	assert.ErrorIs(t, err, ErrDuplicateReference)
}

func TestCancelledBookingFreesWindow(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedVenues(t, db)

	b := newBooking("GEC-X", 1, 18, 23)
	require.NoError(t, db.CreateBookingWithLock(ctx, b))

	ok, err := db.CheckAvailability(ctx, 1, b.StartsAt, b.EndsAt)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, b.ID, b.Version, models.StatusCancelled))

	avail, err := db.GetAvailability(ctx, 1, b.StartsAt, b.EndsAt)
	require.NoError(t, err)
	assert.True(t, avail.Available)
	assert.Zero(t, avail.Conflicts)
}

func TestUpdateBookingStatusWithVersion(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedVenues(t, db)

	b := newBooking("GEC-V", 1, 9, 11)
	require.NoError(t, db.CreateBookingWithLock(ctx, b))

	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, b.ID, 1, models.StatusConfirmed))

	// Устаревшая версия
	err := db.UpdateBookingStatusWithVersion(ctx, b.ID, 1, models.StatusDeclined)
	assert.ErrorIs(t, err, ErrConcurrentModification)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestGetBooking_NotFound(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.GetBooking(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.GetBookingByReference(ctx, "GEC-NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetBookingsByDateRange(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedVenues(t, db)

	for i, day := range []int{0, 1, 5} {
		b := newBooking(fmt.Sprintf("GEC-R%d", i), 1, 10, 12)
		shift := time.Duration(day) * 24 * time.Hour
		b.Date = b.Date.Add(shift)
		b.StartsAt = b.StartsAt.Add(shift)
		b.EndsAt = b.EndsAt.Add(shift)
		require.NoError(t, db.CreateBookingWithLock(ctx, b))
	}

	got, err := db.GetBookingsByDateRange(ctx, testDay, testDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "GEC-R0", got[0].Reference)
	assert.Equal(t, "GEC-R1", got[1].Reference)

	got, err = db.GetBookingsByDateRange(ctx, testDay.AddDate(0, 0, 10), testDay.AddDate(0, 0, 20))
	require.NoError(t, err)
	assert.Empty(t, got)
}
