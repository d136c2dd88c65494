package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"goeventcity/internal/config"
	"goeventcity/internal/domain"
	"goeventcity/internal/export"
	"goeventcity/internal/logging"
	"goeventcity/internal/metrics"
	"goeventcity/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

// Services are the back ends the HTTP API exposes.
type Services struct {
	Wizards  *service.WizardService
	Venues   domain.VenueService
	Bookings domain.BookingService
	Exporter *export.BookingsExporter
	Checks   map[string]ReadyCheck
}

// HTTPServer exposes the JSON API alongside the gRPC service.
type HTTPServer struct {
	cfg    *config.APIConfig
	svc    Services
	server *http.Server
	auth   *HTTPAuth
	logger *zerolog.Logger
}

func NewHTTPServer(cfg *config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	logger = logging.Component(logger, "http")
	srv := &HTTPServer{cfg: cfg, svc: svc, logger: logger}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	srv.routes(mux)

	handler := requestIDMiddleware(loggingMiddleware(logger, corsMiddleware(srv.auth.Wrap(mux))))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	s.handle(mux, "GET /healthz", "healthz", s.handleHealthz)
	s.handle(mux, "GET /readyz", "readyz", s.handleReadyz)

	s.handle(mux, "GET /api/v1/venues", "venues_list", s.handleListVenues)
	s.handle(mux, "GET /api/v1/venues/{id}", "venues_get", s.handleGetVenue)
	s.handle(mux, "POST /api/v1/quotes", "quotes", s.handleQuote)

	s.handle(mux, "POST /api/v1/wizards", "wizards_start", s.handleStartWizard)
	s.handle(mux, "GET /api/v1/wizards/{id}", "wizards_get", s.handleGetWizard)
	s.handle(mux, "DELETE /api/v1/wizards/{id}", "wizards_cancel", s.handleCancelWizard)
	s.handle(mux, "PATCH /api/v1/wizards/{id}/details", "wizards_details", s.handleWizardDetails)
	s.handle(mux, "PATCH /api/v1/wizards/{id}/payment", "wizards_payment", s.handleWizardPayment)
	s.handle(mux, "POST /api/v1/wizards/{id}/quote", "wizards_quote", s.wizardAction((*service.WizardService).RequestQuote))
	s.handle(mux, "POST /api/v1/wizards/{id}/proceed", "wizards_proceed", s.wizardAction((*service.WizardService).Proceed))
	s.handle(mux, "POST /api/v1/wizards/{id}/back", "wizards_back", s.wizardAction((*service.WizardService).Back))
	s.handle(mux, "POST /api/v1/wizards/{id}/modify", "wizards_modify", s.wizardAction((*service.WizardService).Modify))
	s.handle(mux, "POST /api/v1/wizards/{id}/submit", "wizards_submit", s.wizardAction((*service.WizardService).Submit))

	s.handle(mux, "GET /api/v1/bookings/{reference}", "bookings_get", s.handleGetBooking)
	s.handle(mux, "POST /api/v1/bookings/{reference}/confirm", "bookings_confirm", s.bookingAction(domain.BookingService.ConfirmBooking))
	s.handle(mux, "POST /api/v1/bookings/{reference}/decline", "bookings_decline", s.bookingAction(domain.BookingService.DeclineBooking))
	s.handle(mux, "POST /api/v1/bookings/{reference}/cancel", "bookings_cancel", s.bookingAction(domain.BookingService.CancelBooking))

	s.handle(mux, "GET /api/v1/exports/bookings", "exports_bookings", s.handleExportBookings)
}

func (s *HTTPServer) handle(mux *http.ServeMux, pattern, endpoint string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		metrics.IncHTTP(endpoint)
		h(w, r)
	})
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// writeServiceError logs unexpected failures and writes the mapped status.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := httpStatus(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error().Err(err).
			Str("request_id", requestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	writeError(w, code, msg)
}

// HTTPAuth provides API-key auth and per-key rate limiting for HTTP endpoints.
type HTTPAuth struct {
	cfg     *config.APIConfig
	keys    *apiKeys
	limiter *rateLimiter
}

func NewHTTPAuth(cfg *config.APIConfig) *HTTPAuth {
	return &HTTPAuth{
		cfg:     cfg,
		keys:    newAPIKeys(cfg.Auth),
		limiter: newRateLimiter(cfg.RateLimit),
	}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.cfg.Enabled || isProbe(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if a.cfg.Auth.Enabled {
			if err := a.checkAuth(r); err != nil {
				statusCode := http.StatusUnauthorized
				if errors.Is(err, errPermissionDenied) {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
		}

		if !a.limiter.allow(a.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

var errPermissionDenied = errors.New("permission denied")

func (a *HTTPAuth) checkAuth(r *http.Request) error {
	apiKey := strings.TrimSpace(r.Header.Get(a.keys.keyHeader()))
	extra := strings.TrimSpace(r.Header.Get(a.keys.extraHeader()))
	if apiKey == "" || extra == "" {
		return fmt.Errorf("missing api key headers")
	}

	client, ok := a.keys.authenticate(apiKey, extra)
	if !ok {
		return fmt.Errorf("invalid api key")
	}
	if !permitted(client, requiredPermissionHTTP(r)) {
		return errPermissionDenied
	}
	return nil
}

func requiredPermissionHTTP(r *http.Request) string {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/venues"):
		return permReadVenues
	case path == "/api/v1/quotes":
		return permReadQuotes
	case strings.HasPrefix(path, "/api/v1/wizards"):
		return permWriteWizards
	case strings.HasPrefix(path, "/api/v1/bookings"):
		if r.Method == http.MethodGet {
			return permReadBookings
		}
		return permWriteBooking
	case strings.HasPrefix(path, "/api/v1/exports"):
		return permReadExports
	}
	return ""
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.keys.keyHeader())); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

func isProbe(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type ctxKey int

const requestIDKey ctxKey = iota

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDMetadataKey))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func loggingMiddleware(logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		logger.Info().
			Str("request_id", requestIDFromContext(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-API-Extra, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
