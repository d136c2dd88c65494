package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"goeventcity/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubLister struct {
	bookings []*models.Booking
	err      error
}

func (s *stubLister) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return s.bookings, s.err
}

var (
	from = time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	to   = time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)
)

func sampleBookings() []*models.Booking {
	day := time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)
	return []*models.Booking{
		{Reference: "GEC-1", VenueID: 1, VenueName: "Rooftop Loft", Date: day, StartTime: "18:00", EndTime: "23:00", Hours: 5,
			EventType: "Birthday", GuestCount: 40, PaymentMethod: models.PaymentMethodNewCard, CardLastFour: "4242",
			Total: 750, HoldAmount: 150, Status: models.StatusConfirmed},
		{Reference: "GEC-2", VenueID: 1, VenueName: "Rooftop Loft", Date: day, Total: 300, Status: models.StatusRequested},
		{Reference: "GEC-3", VenueID: 2, VenueName: "Garden Hall", Date: day, Total: 500, Status: models.StatusCancelled},
	}
}

func TestBookingsExporter_Write(t *testing.T) {
	e := NewBookingsExporter(&stubLister{bookings: sampleBookings()}, nil)

	var buf bytes.Buffer
	require.NoError(t, e.Write(context.Background(), &buf, from, to))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{bookingsSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(bookingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Reference", rows[0][0])
	assert.Equal(t, "GEC-1", rows[1][0])
	assert.Equal(t, "Rooftop Loft", rows[1][1])
	assert.Equal(t, "2026-11-20", rows[1][2])
	assert.Equal(t, "4242", rows[1][12])
	assert.Equal(t, "750", rows[1][13])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 4)
	assert.Equal(t, "Period: 2026-11-01 - 2026-11-30", summary[0][0])
	// Сортировка по названию площадки
	assert.Equal(t, []string{"Garden Hall", "0", "0", "0", "1", "0"}, summary[2])
	assert.Equal(t, []string{"Rooftop Loft", "1", "1", "0", "0", "750"}, summary[3])
}

func TestBookingsExporter_Empty(t *testing.T) {
	e := NewBookingsExporter(&stubLister{}, nil)

	var buf bytes.Buffer
	require.NoError(t, e.Write(context.Background(), &buf, from, to))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(bookingsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestBookingsExporter_Errors(t *testing.T) {
	t.Run("InvertedRange", func(t *testing.T) {
		e := NewBookingsExporter(&stubLister{}, nil)
		err := e.Write(context.Background(), &bytes.Buffer{}, to, from)
		assert.Error(t, err)
	})

	t.Run("ListerFails", func(t *testing.T) {
		boom := errors.New("db down")
		e := NewBookingsExporter(&stubLister{err: boom}, nil)
		err := e.Write(context.Background(), &bytes.Buffer{}, from, to)
		assert.ErrorIs(t, err, boom)
	})
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "bookings_2026-11-01_to_2026-11-30.xlsx", FileName(from, to))
}
