package database

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"goeventcity/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testVenues() []*models.Venue {
	return []*models.Venue{
		{
			ID:                1,
			Name:              "Rooftop Loft",
			Address:           "1 Market St",
			PricePerHour:      100,
			Capacity:          80,
			ResponseTimeHours: 24,
			Fees: []models.Fee{
				{Name: "Cleaning Fee", Amount: 50},
				{Name: "Security Deposit", Amount: 200},
				{Name: "Parking", Amount: 15},
			},
		},
		{
			ID:                2,
			Name:              "Garden Hall",
			PricePerHour:      75,
			Capacity:          150,
			ResponseTimeHours: 48,
		},
	}
}

func seedVenues(t *testing.T, db *DB) {
	t.Helper()
	require.NoError(t, db.SyncVenues(context.Background(), testVenues()))
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
	assert.Equal(t, dbPath, db.Path())
}

func TestNewDB_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	require.NoError(t, db.SyncVenues(context.Background(), testVenues()))
	db.Close()

	// Повторное открытие не должно падать на CREATE TABLE
	db, err = NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	venues, err := db.GetActiveVenues(context.Background())
	require.NoError(t, err)
	assert.Len(t, venues, 2)
}

func TestDB_Ping(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.PingContext(context.Background()))
}

func TestSyncVenues(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedVenues(t, db)

	venues, err := db.GetActiveVenues(ctx)
	require.NoError(t, err)
	require.Len(t, venues, 2)
	assert.Equal(t, "Rooftop Loft", venues[0].Name)
	assert.True(t, venues[0].IsActive)

	t.Run("FeesKeepOrderAndKind", func(t *testing.T) {
		loft, err := db.GetVenueByID(ctx, 1)
		require.NoError(t, err)
		require.Len(t, loft.Fees, 3)
		assert.Equal(t, models.FeeKindCleaning, loft.Fees[0].Kind)
		assert.Equal(t, models.FeeKindSecurityDeposit, loft.Fees[1].Kind)
		assert.Equal(t, models.FeeKindOther, loft.Fees[2].Kind)
		assert.Equal(t, 50.0, loft.FeeOf(models.FeeKindCleaning))
	})

	t.Run("ResyncDeactivatesMissing", func(t *testing.T) {
		updated := testVenues()[:1]
		updated[0].PricePerHour = 120
		updated[0].Fees = nil
		require.NoError(t, db.SyncVenues(ctx, updated))

		venues, err := db.GetActiveVenues(ctx)
		require.NoError(t, err)
		require.Len(t, venues, 1)
		assert.Equal(t, 120.0, venues[0].PricePerHour)
		assert.Empty(t, venues[0].Fees)

		// Неактивная площадка читается из базы, но не из кэша
		garden, err := db.GetVenueByID(ctx, 2)
		require.NoError(t, err)
		assert.False(t, garden.IsActive)
	})

	t.Run("UnknownVenue", func(t *testing.T) {
		_, err := db.GetVenueByID(ctx, 999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGetVenueByID_ReturnsCopy(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedVenues(t, db)

	v, err := db.GetVenueByID(ctx, 1)
	require.NoError(t, err)
	v.Name = "changed"

	again, err := db.GetVenueByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Rooftop Loft", again.Name)
}

func TestDB_ErrorPaths(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	db.Close() // Close the DB to trigger errors

	ctx := context.Background()
	now := time.Now()

	_, err = db.CheckAvailability(ctx, 1, now, now.Add(time.Hour))
	assert.Error(t, err)

	err = db.CreateBookingWithLock(ctx, &models.Booking{})
	assert.Error(t, err)

	_, err = db.GetBookingsByDateRange(ctx, now, now)
	assert.Error(t, err)

	err = db.SyncVenues(ctx, testVenues())
	assert.Error(t, err)

	_, err = db.GetActiveVenues(ctx)
	assert.Error(t, err)

	err = db.CreateSyncTask(ctx, &models.SyncTask{TaskType: models.SyncTaskAppend})
	assert.Error(t, err)
}

func TestNewDB_InvalidPath(t *testing.T) {
	// Файл на месте директории
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	logger := zerolog.Nop()
	_, err := NewDB(filepath.Join(blocker, "db", "test.db"), &logger)
	assert.Error(t, err)
}
