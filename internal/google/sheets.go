package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"goeventcity/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	bookingsSheet   = "Bookings"
	lastColumn      = "P"
	statusColumn    = "N"
	updatedColumn   = "P"
	sheetTimeLayout = "2006-01-02 15:04:05"
)

var ErrRowNotFound = errors.New("booking row not found")

var bookingHeaders = []interface{}{
	"Reference", "Venue", "Date", "Start", "End", "Hours", "Event Type", "Guests",
	"Contact", "Email", "Phone", "Total", "Hold", "Status", "Created At", "Updated At",
}

// SheetsService зеркалирует заявки в таблицу, одна строка на reference
type SheetsService struct {
	service         *sheets.Service
	bookingsSheetID string
	rowCache        map[string]int
	cacheMu         sync.RWMutex
	logger          *zerolog.Logger
}

func NewSheetsService(ctx context.Context, credentialsFile, bookingsSheetID string, logger *zerolog.Logger) (*SheetsService, error) {
	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return newSheetsService(srv, bookingsSheetID, logger), nil
}

func newSheetsService(srv *sheets.Service, bookingsSheetID string, logger *zerolog.Logger) *SheetsService {
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	return &SheetsService{
		service:         srv,
		bookingsSheetID: bookingsSheetID,
		rowCache:        make(map[string]int),
		logger:          logger,
	}
}

// TestConnection проверяет подключение к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.bookingsSheetID, bookingsSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// GetServiceAccountEmail возвращает email сервисного аккаунта
func GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// EnsureHeader writes the header row when the sheet is empty.
func (s *SheetsService) EnsureHeader(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.bookingsSheetID, bookingsSheet+"!A1:"+lastColumn+"1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	_, err = s.service.Spreadsheets.Values.Update(s.bookingsSheetID, bookingsSheet+"!A1:"+lastColumn+"1", &sheets.ValueRange{
		Values: [][]interface{}{bookingHeaders},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

// WarmUpCache populates the row index cache by reading the reference column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.bookingsSheetID, bookingsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	cache := make(map[string]int, len(resp.Values))
	for i, row := range resp.Values {
		if ref := cellString(row); ref != "" && i > 0 {
			cache[ref] = i + 1
		}
	}

	s.cacheMu.Lock()
	s.rowCache = cache
	s.cacheMu.Unlock()

	s.logger.Debug().Int("rows", len(cache)).Msg("Sheets row cache warmed up")
	return nil
}

// StartCacheRefresh warms the cache now and then on every interval until ctx
// is done.
func (s *SheetsService) StartCacheRefresh(ctx context.Context, interval time.Duration) {
	refresh := func() {
		rctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.WarmUpCache(rctx); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to warm up sheets cache")
		}
	}

	refresh()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// AppendBooking добавляет новую заявку. Уже записанная заявка не дублируется.
func (s *SheetsService) AppendBooking(ctx context.Context, booking *models.Booking) error {
	if booking == nil || booking.Reference == "" {
		return fmt.Errorf("booking reference is required")
	}
	if _, ok := s.getCachedRow(booking.Reference); ok {
		return nil
	}

	resp, err := s.service.Spreadsheets.Values.Append(s.bookingsSheetID, bookingsSheet+"!A:A", &sheets.ValueRange{
		Values: [][]interface{}{bookingRowValues(booking)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append booking %s: %w", booking.Reference, err)
	}

	if resp.Updates != nil {
		if row, ok := rowFromRange(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(booking.Reference, row)
		}
	}
	return nil
}

// UpdateBookingStatus updates status and Updated At for a booking row.
func (s *SheetsService) UpdateBookingStatus(ctx context.Context, reference, status string) error {
	rowIdx, err := s.FindBookingRow(ctx, reference)
	if err != nil {
		return err
	}

	now := time.Now().Format(sheetTimeLayout)
	_, err = s.service.Spreadsheets.Values.BatchUpdate(s.bookingsSheetID, &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*sheets.ValueRange{
			{
				Range:  fmt.Sprintf("%s!%s%d", bookingsSheet, statusColumn, rowIdx),
				Values: [][]interface{}{{status}},
			},
			{
				Range:  fmt.Sprintf("%s!%s%d", bookingsSheet, updatedColumn, rowIdx),
				Values: [][]interface{}{{now}},
			},
		},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update status of %s: %w", reference, err)
	}
	return nil
}

// FindBookingRow locates the 1-based row for reference in column A.
func (s *SheetsService) FindBookingRow(ctx context.Context, reference string) (int, error) {
	if reference == "" {
		return 0, fmt.Errorf("reference is required")
	}

	if row, ok := s.getCachedRow(reference); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.bookingsSheetID, bookingsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if cellString(row) == reference {
			rowIdx := i + 1 // Values are zero-based; sheet rows are 1-based
			s.setCachedRow(reference, rowIdx)
			return rowIdx, nil
		}
	}

	return 0, fmt.Errorf("%s: %w", reference, ErrRowNotFound)
}

func (s *SheetsService) getCachedRow(ref string) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[ref]
	return row, ok
}

func (s *SheetsService) setCachedRow(ref string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[ref] = row
}

// ClearCache clears the row index cache.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int)
}

func bookingRowValues(b *models.Booking) []interface{} {
	return []interface{}{
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
		b.Total,
		b.HoldAmount,
		b.Status,
		b.CreatedAt.Format(sheetTimeLayout),
		b.UpdatedAt.Format(sheetTimeLayout),
	}
}

func cellString(row []interface{}) string {
	if len(row) == 0 {
		return ""
	}
	switch v := row[0].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// rowFromRange извлекает номер строки из "Bookings!A10:P10"
func rowFromRange(r string) (int, bool) {
	if i := strings.LastIndex(r, "!"); i >= 0 {
		r = r[i+1:]
	}
	if i := strings.Index(r, ":"); i >= 0 {
		r = r[:i]
	}
	digits := strings.TrimLeft(r, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	row, err := strconv.Atoi(digits)
	if err != nil || row <= 0 {
		return 0, false
	}
	return row, true
}
