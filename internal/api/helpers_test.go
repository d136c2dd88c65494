package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"goeventcity/internal/config"
	"goeventcity/internal/database"
	"goeventcity/internal/export"
	"goeventcity/internal/models"
	"goeventcity/internal/payment"
	"goeventcity/internal/repository"
	"goeventcity/internal/service"

	"github.com/rs/zerolog"
)

type testStack struct {
	db       *database.DB
	venues   *service.VenueService
	wizards  *service.WizardService
	bookings *service.BookingService
	exporter *export.BookingsExporter
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), &logger)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.SyncVenues(context.Background(), testVenues()); err != nil {
		t.Fatalf("sync venues: %v", err)
	}

	states := repository.NewMemoryStateRepository(time.Hour)
	authorizer := payment.NewSimulatedAuthorizer(0, &logger)
	venues := service.NewVenueService(db, &logger)
	submitter := service.NewSubmissionService(db, authorizer, nil, nil, 20, "usd", &logger)

	return &testStack{
		db:       db,
		venues:   venues,
		wizards:  service.NewWizardService(states, venues, db, submitter, 20, 365, &logger),
		bookings: service.NewBookingService(db, nil, nil, &logger),
		exporter: export.NewBookingsExporter(db, &logger),
	}
}

func (s *testStack) services() Services {
	return Services{
		Wizards:  s.wizards,
		Venues:   s.venues,
		Bookings: s.bookings,
		Exporter: s.exporter,
		Checks: map[string]ReadyCheck{
			"database": func(ctx context.Context) error { return s.db.PingContext(ctx) },
		},
	}
}

func testVenues() []*models.Venue {
	return []*models.Venue{
		{
			ID:                1,
			Name:              "Rooftop Loft",
			PricePerHour:      100,
			Capacity:          80,
			ResponseTimeHours: 24,
			SortOrder:         1,
			IsActive:          true,
			Fees: []models.Fee{
				{Kind: models.FeeKindCleaning, Name: "Cleaning Fee", Amount: 50},
				{Kind: models.FeeKindSecurityDeposit, Name: "Security Deposit", Amount: 200},
			},
		},
		{
			ID:                2,
			Name:              "Garden Hall",
			PricePerHour:      75,
			Capacity:          150,
			ResponseTimeHours: 48,
			SortOrder:         2,
			IsActive:          true,
		},
	}
}

func openAPIConfig() *config.APIConfig {
	return &config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true, Port: 0},
		Auth:    config.APIAuthConfig{Enabled: false},
	}
}

func newTestServer(t *testing.T, cfg *config.APIConfig, stack *testStack) *httptest.Server {
	t.Helper()
	logger := zerolog.New(io.Discard)
	server := NewHTTPServer(cfg, stack.services(), &logger)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// futureDate is a booking date safely inside the booking horizon.
func futureDate() string {
	return time.Now().UTC().AddDate(0, 1, 0).Format(models.DateLayout)
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && resp.Header.Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return resp, out
}
