package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"goeventcity/internal/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func setupMockServer(ctx context.Context) (*http.ServeMux, *httptest.Server, *SheetsService) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	srv, _ := sheets.NewService(ctx, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	return mux, server, newSheetsService(srv, "bookings_tid", nil)
}

func testBooking() *models.Booking {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	return &models.Booking{
		Reference:  "GEC-0000ABCD",
		VenueName:  "Rooftop Loft",
		Date:       time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC),
		StartTime:  "18:00",
		EndTime:    "23:00",
		Hours:      5,
		EventType:  "Birthday",
		GuestCount: 40,
		Total:      750,
		HoldAmount: 150,
		Status:     models.StatusRequested,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestSheetsService_TestConnection(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"Reference"}}})
	})
	if err := s.TestConnection(ctx); err != nil {
		t.Errorf("TestConnection failed: %v", err)
	}
}

func TestSheetsService_EnsureHeader(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()

	var wrote []interface{}
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A1:P1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode(sheets.ValueRange{})
			return
		}
		var vr sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		if len(vr.Values) > 0 {
			wrote = vr.Values[0]
		}
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	if err := s.EnsureHeader(ctx); err != nil {
		t.Fatalf("EnsureHeader failed: %v", err)
	}
	if len(wrote) != len(bookingHeaders) || wrote[0] != "Reference" {
		t.Errorf("unexpected header written: %v", wrote)
	}
}

func TestSheetsService_WarmUpCache(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"Reference"}, {"GEC-1"}, {}, {"GEC-3"}},
		})
	})
	if err := s.WarmUpCache(ctx); err != nil {
		t.Fatalf("WarmUpCache failed: %v", err)
	}
	if row, ok := s.getCachedRow("GEC-1"); !ok || row != 2 {
		t.Errorf("Expected row 2 for GEC-1, got %d", row)
	}
	if row, ok := s.getCachedRow("GEC-3"); !ok || row != 4 {
		t.Errorf("Expected row 4 for GEC-3, got %d", row)
	}
	if _, ok := s.getCachedRow("Reference"); ok {
		t.Error("header row must not be cached")
	}
}

func TestSheetsService_AppendBooking(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()

	calls := 0
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Bookings!A10:P10"},
		})
	})

	b := testBooking()
	if err := s.AppendBooking(ctx, b); err != nil {
		t.Fatalf("AppendBooking failed: %v", err)
	}
	if row, _ := s.getCachedRow(b.Reference); row != 10 {
		t.Errorf("Expected cached row 10, got %d", row)
	}

	// Повтор задачи не создает вторую строку
	if err := s.AppendBooking(ctx, b); err != nil {
		t.Fatalf("second AppendBooking failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 append call, got %d", calls)
	}

	if err := s.AppendBooking(ctx, &models.Booking{}); err == nil {
		t.Error("expected error for booking without reference")
	}
}

func TestSheetsService_UpdateBookingStatus(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	s.setCachedRow("GEC-1", 2)

	var req sheets.BatchUpdateValuesRequest
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values:batchUpdate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(sheets.BatchUpdateValuesResponse{})
	})

	if err := s.UpdateBookingStatus(ctx, "GEC-1", models.StatusConfirmed); err != nil {
		t.Fatalf("UpdateBookingStatus failed: %v", err)
	}
	if len(req.Data) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(req.Data))
	}
	if req.Data[0].Range != "Bookings!N2" || req.Data[0].Values[0][0] != models.StatusConfirmed {
		t.Errorf("unexpected status range: %+v", req.Data[0])
	}
	if req.Data[1].Range != "Bookings!P2" {
		t.Errorf("unexpected updated range: %s", req.Data[1].Range)
	}
}

func TestSheetsService_FindBookingRow(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"Reference"}, {"GEC-1"}, {"GEC-2"}},
		})
	})

	row, err := s.FindBookingRow(ctx, "GEC-2")
	if err != nil {
		t.Fatalf("FindBookingRow failed: %v", err)
	}
	if row != 3 {
		t.Errorf("expected row 3, got %d", row)
	}

	_, err = s.FindBookingRow(ctx, "GEC-404")
	if !errors.Is(err, ErrRowNotFound) {
		t.Errorf("expected ErrRowNotFound, got %v", err)
	}

	if _, err := s.FindBookingRow(ctx, ""); err == nil {
		t.Error("expected error for empty reference")
	}
}

func TestCacheOperations(t *testing.T) {
	s := newSheetsService(nil, "id", nil)
	s.setCachedRow("GEC-1", 5)
	if row, ok := s.getCachedRow("GEC-1"); !ok || row != 5 {
		t.Errorf("expected cached row 5, got %d", row)
	}
	s.ClearCache()
	if _, ok := s.getCachedRow("GEC-1"); ok {
		t.Error("expected cache to be cleared")
	}
}

func TestBookingRowValues(t *testing.T) {
	row := bookingRowValues(testBooking())
	if len(row) != len(bookingHeaders) {
		t.Fatalf("expected %d columns, got %d", len(bookingHeaders), len(row))
	}
	if row[0] != "GEC-0000ABCD" {
		t.Errorf("unexpected reference: %v", row[0])
	}
	if row[2] != "2026-11-20" {
		t.Errorf("unexpected date: %v", row[2])
	}
	if row[13] != models.StatusRequested {
		t.Errorf("status must be in column N, got %v", row[13])
	}
}

func TestRowFromRange(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"Bookings!A10:P10", 10, true},
		{"A2", 2, true},
		{"Bookings!A:A", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := rowFromRange(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("rowFromRange(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestGetServiceAccountEmail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte(`{"client_email": "test@example.com"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	email, err := GetServiceAccountEmail(path)
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if email != "test@example.com" {
		t.Errorf("Expected test@example.com, got %s", email)
	}

	if _, err := GetServiceAccountEmail("non-existent"); err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestNewSheetsService_MissingCredentials(t *testing.T) {
	_, err := NewSheetsService(context.Background(), filepath.Join(t.TempDir(), "missing.json"), "id", nil)
	if err == nil {
		t.Error("expected error for missing credentials file")
	}
}
