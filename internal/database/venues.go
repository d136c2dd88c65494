package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"goeventcity/internal/models"
)

// SyncVenues upserts the catalog and replaces each venue's fee list. Venues
// missing from the catalog are deactivated, never deleted, so bookings keep
// their venue row.
func (db *DB) SyncVenues(ctx context.Context, venues []*models.Venue) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `UPDATE venues SET is_active = 0, updated_at = ?`, now); err != nil {
		return fmt.Errorf("failed to deactivate venues: %w", err)
	}

	upsert := `INSERT INTO venues (id, name, image, address, price_per_hour, capacity, response_time_hours, sort_order, is_active, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
               ON CONFLICT(id) DO UPDATE SET
                   name = excluded.name,
                   image = excluded.image,
                   address = excluded.address,
                   price_per_hour = excluded.price_per_hour,
                   capacity = excluded.capacity,
                   response_time_hours = excluded.response_time_hours,
                   sort_order = excluded.sort_order,
                   is_active = 1,
                   updated_at = excluded.updated_at`

	for i, v := range venues {
		sortOrder := v.SortOrder
		if sortOrder == 0 {
			sortOrder = int64(i + 1)
		}
		if _, err := tx.ExecContext(ctx, upsert,
			v.ID, v.Name, v.Image, v.Address, v.PricePerHour, v.Capacity,
			v.ResponseTimeHours, sortOrder, now, now,
		); err != nil {
			return fmt.Errorf("failed to upsert venue %d: %w", v.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM venue_fees WHERE venue_id = ?`, v.ID); err != nil {
			return fmt.Errorf("failed to clear fees of venue %d: %w", v.ID, err)
		}
		for pos, fee := range v.Fees {
			fee = fee.NormalizeKind()
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO venue_fees (venue_id, position, kind, name, amount) VALUES (?, ?, ?, ?, ?)`,
				v.ID, pos, string(fee.Kind), fee.Name, fee.Amount,
			); err != nil {
				return fmt.Errorf("failed to insert fee of venue %d: %w", v.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit venues: %w", err)
	}

	return db.LoadVenuesToCache(ctx)
}

// LoadVenuesToCache перечитывает активные площадки в кэш
func (db *DB) LoadVenuesToCache(ctx context.Context) error {
	venues, err := db.queryVenues(ctx, `WHERE is_active = 1`)
	if err != nil {
		return err
	}

	cache := make(map[int64]*models.Venue, len(venues))
	for _, v := range venues {
		cache[v.ID] = v
	}

	db.mu.Lock()
	db.venuesCache = cache
	db.mu.Unlock()

	db.logger.Debug().Int("venues", len(venues)).Msg("Venues cache reloaded")
	return nil
}

func (db *DB) GetActiveVenues(ctx context.Context) ([]*models.Venue, error) {
	return db.queryVenues(ctx, `WHERE is_active = 1`)
}

func (db *DB) GetVenueByID(ctx context.Context, id int64) (*models.Venue, error) {
	db.mu.RLock()
	cached, ok := db.venuesCache[id]
	db.mu.RUnlock()
	if ok {
		v := *cached
		return &v, nil
	}

	venues, err := db.queryVenues(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(venues) == 0 {
		return nil, fmt.Errorf("venue %d: %w", id, ErrNotFound)
	}
	return venues[0], nil
}

func (db *DB) queryVenues(ctx context.Context, where string, args ...interface{}) ([]*models.Venue, error) {
	query := `SELECT id, name, image, address, price_per_hour, capacity, response_time_hours,
                     sort_order, is_active, created_at, updated_at
              FROM venues ` + where + ` ORDER BY sort_order, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query venues: %w", err)
	}

	var venues []*models.Venue
	byID := make(map[int64]*models.Venue)
	for rows.Next() {
		v := &models.Venue{}
		if err := rows.Scan(
			&v.ID, &v.Name, &v.Image, &v.Address, &v.PricePerHour, &v.Capacity, &v.ResponseTimeHours,
			&v.SortOrder, &v.IsActive, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan venue: %w", err)
		}
		venues = append(venues, v)
		byID[v.ID] = v
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(venues) == 0 {
		return venues, nil
	}
	if err := db.attachFees(ctx, byID); err != nil {
		return nil, err
	}
	return venues, nil
}

func (db *DB) attachFees(ctx context.Context, byID map[int64]*models.Venue) error {
	rows, err := db.QueryContext(ctx, `SELECT venue_id, kind, name, amount FROM venue_fees ORDER BY venue_id, position`)
	if err != nil {
		return fmt.Errorf("failed to query venue fees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			venueID int64
			kind    string
			fee     models.Fee
		)
		if err := rows.Scan(&venueID, &kind, &fee.Name, &fee.Amount); err != nil {
			return fmt.Errorf("failed to scan venue fee: %w", err)
		}
		fee.Kind = models.FeeKind(kind)
		if v, ok := byID[venueID]; ok {
			v.Fees = append(v.Fees, fee)
		}
	}
	return rows.Err()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
