package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"goeventcity/internal/models"
)

// Окна бронирования хранятся как UTC RFC3339, чтобы сравнение строк
// совпадало с сравнением времени
const windowLayout = time.RFC3339

const bookingColumns = `id, reference, venue_id, venue_name, date, start_time, end_time, starts_at, ends_at,
                        hours, event_type, guest_count, contact_name, contact_email, contact_phone,
                        payment_method, card_last_four, authorization_id, hold_amount, total, status,
                        created_at, updated_at, version`

const overlapCondition = `venue_id = ? AND status IN (?, ?) AND starts_at < ? AND ends_at > ?`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	var (
		dateStr, startsAt, endsAt string
		method                    string
	)
	err := row.Scan(
		&b.ID, &b.Reference, &b.VenueID, &b.VenueName, &dateStr, &b.StartTime, &b.EndTime, &startsAt, &endsAt,
		&b.Hours, &b.EventType, &b.GuestCount, &b.ContactName, &b.ContactEmail, &b.ContactPhone,
		&method, &b.CardLastFour, &b.AuthorizationID, &b.HoldAmount, &b.Total, &b.Status,
		&b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	b.PaymentMethod = models.PaymentMethod(method)

	if b.Date, err = time.Parse(models.DateLayout, dateStr); err != nil {
		return nil, fmt.Errorf("failed to parse booking date %s: %w", dateStr, err)
	}
	if b.StartsAt, err = time.Parse(windowLayout, startsAt); err != nil {
		return nil, fmt.Errorf("failed to parse booking start %s: %w", startsAt, err)
	}
	if b.EndsAt, err = time.Parse(windowLayout, endsAt); err != nil {
		return nil, fmt.Errorf("failed to parse booking end %s: %w", endsAt, err)
	}
	return b, nil
}

// CheckAvailability reports whether no live booking of the venue overlaps
// [startsAt, endsAt).
func (db *DB) CheckAvailability(ctx context.Context, venueID int64, startsAt, endsAt time.Time) (bool, error) {
	count, err := db.countOverlapping(ctx, db.DB, venueID, startsAt, endsAt)
	if err != nil {
		return false, fmt.Errorf("failed to check availability: %w", err)
	}
	return count == 0, nil
}

// GetAvailability is CheckAvailability with the conflict count.
func (db *DB) GetAvailability(ctx context.Context, venueID int64, startsAt, endsAt time.Time) (*models.Availability, error) {
	count, err := db.countOverlapping(ctx, db.DB, venueID, startsAt, endsAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}
	return &models.Availability{
		VenueID:   venueID,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		Available: count == 0,
		Conflicts: count,
	}, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (db *DB) countOverlapping(ctx context.Context, q queryRower, venueID int64, startsAt, endsAt time.Time) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE `+overlapCondition,
		venueID, models.StatusRequested, models.StatusConfirmed,
		endsAt.UTC().Format(windowLayout), startsAt.UTC().Format(windowLayout),
	).Scan(&count)
	return count, err
}

// CreateBookingWithLock re-checks the window and inserts the booking in one
// transaction.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Проверяем пересечения внутри транзакции
	count, err := db.countOverlapping(ctx, tx, booking.VenueID, booking.StartsAt, booking.EndsAt)
	if err != nil {
		return fmt.Errorf("failed to check availability in tx: %w", err)
	}
	if count > 0 {
		return ErrNotAvailable
	}

	// 2. Создаем заявку
	if booking.Status == "" {
		booking.Status = models.StatusRequested
	}
	now := time.Now()
	query := `INSERT INTO bookings (
                reference, venue_id, venue_name, date, start_time, end_time, starts_at, ends_at,
                hours, event_type, guest_count, contact_name, contact_email, contact_phone,
                payment_method, card_last_four, authorization_id, hold_amount, total, status,
                created_at, updated_at, version
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`
	result, err := tx.ExecContext(ctx, query,
		booking.Reference,
		booking.VenueID,
		booking.VenueName,
		booking.Date.Format(models.DateLayout),
		booking.StartTime,
		booking.EndTime,
		booking.StartsAt.UTC().Format(windowLayout),
		booking.EndsAt.UTC().Format(windowLayout),
		booking.Hours,
		booking.EventType,
		booking.GuestCount,
		booking.ContactName,
		booking.ContactEmail,
		booking.ContactPhone,
		string(booking.PaymentMethod),
		booking.CardLastFour,
		booking.AuthorizationID,
		booking.HoldAmount,
		booking.Total,
		booking.Status,
		now,
		now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: bookings.reference") {
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBooking(row)
	if isNoRows(err) {
		return nil, fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (db *DB) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference = ?`, reference)
	booking, err := scanBooking(row)
	if isNoRows(err) {
		return nil, fmt.Errorf("booking %s: %w", reference, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// GetBookingsByDateRange returns bookings whose primary date lies within
// [start, end], both inclusive.
func (db *DB) GetBookingsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE date >= ? AND date <= ? ORDER BY date ASC, starts_at ASC, id ASC`
	rows, err := db.QueryContext(ctx, query, startDate.Format(models.DateLayout), endDate.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by date range: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}
