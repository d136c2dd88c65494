// Package export renders booking reports as xlsx workbooks.
package export

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"goeventcity/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	summarySheet  = "Summary"
)

var bookingColumns = []string{
	"Reference", "Venue", "Date", "Start", "End", "Hours", "Event Type", "Guests",
	"Contact", "Email", "Phone", "Payment", "Card", "Total", "Hold", "Status", "Created At",
}

type BookingLister interface {
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
}

// BookingsExporter builds a workbook with every booking in a date range and a
// per-venue summary.
type BookingsExporter struct {
	bookings BookingLister
	logger   *zerolog.Logger
}

func NewBookingsExporter(bookings BookingLister, logger *zerolog.Logger) *BookingsExporter {
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	return &BookingsExporter{bookings: bookings, logger: logger}
}

// FileName is the suggested attachment name for a range.
func FileName(from, to time.Time) string {
	return fmt.Sprintf("bookings_%s_to_%s.xlsx", from.Format(models.DateLayout), to.Format(models.DateLayout))
}

// Write renders the workbook for [from, to] into w.
func (e *BookingsExporter) Write(ctx context.Context, w io.Writer, from, to time.Time) error {
	if to.Before(from) {
		return fmt.Errorf("invalid date range: %s - %s", from.Format(models.DateLayout), to.Format(models.DateLayout))
	}

	bookings, err := e.bookings.GetBookingsByDateRange(ctx, from, to)
	if err != nil {
		return fmt.Errorf("error getting bookings: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := writeBookings(f, bookings); err != nil {
		return err
	}
	if err := writeSummary(f, from, to, bookings); err != nil {
		return err
	}

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}

	e.logger.Info().
		Str("from", from.Format(models.DateLayout)).
		Str("to", to.Format(models.DateLayout)).
		Int("bookings", len(bookings)).
		Msg("Bookings export created")
	return nil
}

func writeBookings(f *excelize.File, bookings []*models.Booking) error {
	header, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, name := range bookingColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(bookingsSheet, cell, name); err != nil {
			return fmt.Errorf("error writing header: %w", err)
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(bookingColumns))
	_ = f.SetCellStyle(bookingsSheet, "A1", lastCol+"1", header)

	for i, b := range bookings {
		row := []interface{}{
			b.Reference,
			b.VenueName,
			b.Date.Format(models.DateLayout),
			b.StartTime,
			b.EndTime,
			b.Hours,
			b.EventType,
			b.GuestCount,
			b.ContactName,
			b.ContactEmail,
			b.ContactPhone,
			string(b.PaymentMethod),
			b.CardLastFour,
			b.Total,
			b.HoldAmount,
			b.Status,
			b.CreatedAt.Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(bookingsSheet, cell, &row); err != nil {
			return fmt.Errorf("error writing booking %s: %w", b.Reference, err)
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 16)
	_ = f.SetColWidth(bookingsSheet, "B", "B", 25)
	_ = f.SetColWidth(bookingsSheet, "C", lastCol, 14)
	_ = f.SetPanes(bookingsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return nil
}

type venueSummary struct {
	name      string
	requested int
	confirmed int
	declined  int
	cancelled int
	total     float64
}

func summarize(bookings []*models.Booking) []*venueSummary {
	byVenue := make(map[int64]*venueSummary)
	for _, b := range bookings {
		s, ok := byVenue[b.VenueID]
		if !ok {
			s = &venueSummary{name: b.VenueName}
			byVenue[b.VenueID] = s
		}
		switch b.Status {
		case models.StatusRequested:
			s.requested++
		case models.StatusConfirmed:
			s.confirmed++
			s.total += b.Total
		case models.StatusDeclined:
			s.declined++
		case models.StatusCancelled:
			s.cancelled++
		}
	}

	out := make([]*venueSummary, 0, len(byVenue))
	for _, s := range byVenue {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func writeSummary(f *excelize.File, from, to time.Time, bookings []*models.Booking) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	_ = f.SetCellValue(summarySheet, "A1", fmt.Sprintf("Period: %s - %s",
		from.Format(models.DateLayout), to.Format(models.DateLayout)))
	_ = f.MergeCell(summarySheet, "A1", "F1")
	title, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(summarySheet, "A1", "A1", title)

	header := []interface{}{"Venue", "Requested", "Confirmed", "Declined", "Cancelled", "Confirmed Total"}
	if err := f.SetSheetRow(summarySheet, "A2", &header); err != nil {
		return fmt.Errorf("error writing summary header: %w", err)
	}

	for i, s := range summarize(bookings) {
		row := []interface{}{s.name, s.requested, s.confirmed, s.declined, s.cancelled, s.total}
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("error writing summary: %w", err)
		}
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 25)
	_ = f.SetColWidth(summarySheet, "B", "F", 16)
	return nil
}
