package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"goeventcity/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "source.db")
	storagePath := filepath.Join(tempDir, "backups")

	logger := zerolog.Nop()
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.SyncVenues(context.Background(), testVenues()))

	cfg := config.BackupConfig{
		Enabled:       true,
		StoragePath:   storagePath,
		RetentionDays: 1,
	}
	s := NewBackupService(db, cfg, &logger)
	s.now = func() time.Time { return time.Date(2026, 11, 20, 10, 30, 0, 0, time.UTC) }

	t.Run("PerformBackup", func(t *testing.T) {
		path, err := s.PerformBackup(context.Background())
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(storagePath, "goeventcity_20261120_103000.db"), path)
		assert.FileExists(t, path)

		// Копия открывается как обычная база
		backup, err := NewDB(path, &logger)
		require.NoError(t, err)
		defer backup.Close()
		venues, err := backup.GetActiveVenues(context.Background())
		require.NoError(t, err)
		assert.Len(t, venues, 2)
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		oldFile := filepath.Join(storagePath, "goeventcity_20200101_000000.db")
		require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
		oldTime := s.now().AddDate(0, 0, -2)
		require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))

		foreign := filepath.Join(storagePath, "notes.txt")
		require.NoError(t, os.WriteFile(foreign, []byte("keep"), 0o644))
		require.NoError(t, os.Chtimes(foreign, oldTime, oldTime))

		s.CleanupOldBackups()

		assert.NoFileExists(t, oldFile)
		assert.FileExists(t, foreign)
	})
}

func TestBackupService_Disabled(t *testing.T) {
	db := setupTestDB(t)
	logger := zerolog.Nop()
	s := NewBackupService(db, config.BackupConfig{Enabled: false}, &logger)

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return immediately when disabled")
	}
}

func TestBackupService_StartStopsOnCancel(t *testing.T) {
	tempDir := t.TempDir()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(tempDir, "source.db"), &logger)
	require.NoError(t, err)
	defer db.Close()

	s := NewBackupService(db, config.BackupConfig{
		Enabled:     true,
		Schedule:    "1h",
		StoragePath: filepath.Join(tempDir, "backups"),
	}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	// Первичный бэкап делается сразу
	assert.Eventually(t, func() bool {
		entries, _ := os.ReadDir(filepath.Join(tempDir, "backups"))
		return len(entries) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not stop after cancel")
	}
}
