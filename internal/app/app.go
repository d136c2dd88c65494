// Package app assembles the shared service stack used by the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"goeventcity/internal/api"
	"goeventcity/internal/config"
	"goeventcity/internal/database"
	"goeventcity/internal/domain"
	"goeventcity/internal/events"
	"goeventcity/internal/export"
	"goeventcity/internal/google"
	"goeventcity/internal/logging"
	"goeventcity/internal/metrics"
	"goeventcity/internal/models"
	"goeventcity/internal/payment"
	"goeventcity/internal/repository"
	"goeventcity/internal/service"
	"goeventcity/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

const sheetsCacheRefresh = 5 * time.Minute

// Stack holds everything both front-ends share.
type Stack struct {
	Config   *config.Config
	DB       *database.DB
	Redis    *redis.Client
	States   domain.StateRepository
	Venues   *service.VenueService
	Wizards  *service.WizardService
	Bookings *service.BookingService
	Exporter *export.BookingsExporter

	kafka  *events.KafkaForwarder
	logger *zerolog.Logger
}

// LoadConfig reads CONFIG_PATH (configs/config.yaml by default) and builds
// the root logger.
func LoadConfig(component string) (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logging.Component(baseLogger, component), closer, nil
}

// LoadVenues reads the venue catalog. VENUES_PATH overrides the configured file.
func LoadVenues(path string) ([]*models.Venue, error) {
	if env := os.Getenv("VENUES_PATH"); env != "" {
		path = env
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read venues %s: %w", path, err)
	}

	var catalog struct {
		Venues []*models.Venue `yaml:"venues"`
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse venues %s: %w", path, err)
	}
	if err := config.ValidateVenues(catalog.Venues); err != nil {
		return nil, err
	}
	return catalog.Venues, nil
}

// Build opens storage, seeds the catalog and starts the background workers.
// Workers stop with ctx; Close releases the connections.
func Build(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Stack, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	venueList, err := LoadVenues(cfg.Booking.VenuesFile)
	if err != nil {
		return nil, err
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	s := &Stack{Config: cfg, DB: db, Venues: service.NewVenueService(db, logger), logger: logger}

	if err := s.Venues.Sync(ctx, venueList); err != nil {
		s.Close()
		return nil, fmt.Errorf("sync venues: %w", err)
	}

	s.Redis, s.States = initStates(ctx, cfg, logger)

	authorizer, err := payment.NewAuthorizer(cfg.Payment, logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	eventBus := events.NewEventBus()
	if cfg.Kafka.Enabled {
		forwarder, err := events.NewKafkaForwarder(cfg.Kafka, logger)
		if err != nil {
			// Без Kafka заявки всё равно принимаются
			logger.Warn().Err(err).Msg("Kafka unavailable, booking events stay local")
		} else {
			forwarder.Attach(eventBus)
			s.kafka = forwarder
		}
	}

	syncWorker := initSheets(ctx, cfg, db, s.Redis, logger)

	if cfg.Backup.Enabled {
		go database.NewBackupService(db, cfg.Backup, logger).Start(ctx)
	}

	submitter := service.NewSubmissionService(db, authorizer, eventBus, syncWorker, cfg.Booking.HoldPercent, cfg.Payment.Currency, logger)
	s.Wizards = service.NewWizardService(s.States, s.Venues, db, submitter, cfg.Booking.HoldPercent, cfg.Booking.MaxBookingDays, logger)
	s.Bookings = service.NewBookingService(db, eventBus, syncWorker, logger)
	if cfg.Exports.Enabled {
		s.Exporter = export.NewBookingsExporter(db, logger)
	}

	return s, nil
}

func initStates(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.StateRepository) {
	ttl := cfg.Booking.SessionTTL()
	memory := repository.NewMemoryStateRepository(ttl)
	if cfg.Redis.Address == "" {
		logger.Info().Msg("Redis not configured, wizard sessions are kept in memory")
		return nil, memory
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable")
	}

	primary := repository.NewRedisStateRepository(client, ttl)
	return client, repository.NewFailoverStateRepository(primary, memory, logger)
}

// initSheets returns nil when Google Sheets is not configured or unreachable.
func initSheets(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) domain.SyncWorker {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		return nil
	}

	sheets, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.BookingSpreadSheetID, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Google Sheets service")
		return nil
	}
	if err := sheets.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("Google Sheets connection test failed")
		return nil
	}
	if err := sheets.EnsureHeader(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to write sheet header")
	}
	go sheets.StartCacheRefresh(ctx, sheetsCacheRefresh)

	w := worker.NewSheetsWorker(db, sheets, redisClient, worker.DefaultRetryPolicy, logger)
	go w.Start(ctx)

	logger.Info().Msg("Google Sheets sync started")
	return w
}

// ReadyChecks reports the dependencies /readyz probes.
func (s *Stack) ReadyChecks() map[string]api.ReadyCheck {
	checks := map[string]api.ReadyCheck{
		"database": func(ctx context.Context) error { return s.DB.PingContext(ctx) },
	}
	if s.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return repository.Ping(ctx, s.Redis) }
	}
	return checks
}

// APIServices wires the stack into the HTTP handlers.
func (s *Stack) APIServices() api.Services {
	return api.Services{
		Wizards:  s.Wizards,
		Venues:   s.Venues,
		Bookings: s.Bookings,
		Exporter: s.Exporter,
		Checks:   s.ReadyChecks(),
	}
}

func (s *Stack) Close() {
	if s.kafka != nil {
		if err := s.kafka.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close Kafka producer")
		}
	}
	if err := repository.Close(s.Redis); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to close Redis client")
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
}

// ServeMetrics exposes /metrics until ctx is done.
func ServeMetrics(ctx context.Context, cfg config.MonitoringConfig, logger *zerolog.Logger) {
	if !cfg.PrometheusEnabled {
		return
	}

	metrics.Register()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.PrometheusPort), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Int("port", cfg.PrometheusPort).Msg("Metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("Metrics server error")
	}
}
