package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"goeventcity/internal/domain"
	"goeventcity/internal/export"
	"goeventcity/internal/models"
	"goeventcity/internal/service"
)

const (
	readyTimeout  = 2 * time.Second
	xlsxMIME      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxExportDays = 366
)

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range s.svc.Checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		s.logger.Warn().Interface("failed", failed).Msg("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *HTTPServer) handleListVenues(w http.ResponseWriter, r *http.Request) {
	venues, err := s.svc.Venues.GetActiveVenues(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"venues": venues})
}

func (s *HTTPServer) handleGetVenue(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid venue id")
		return
	}
	venue, err := s.svc.Venues.GetVenueByID(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, venue)
}

func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	res, err := s.svc.Wizards.Quote(r.Context(), req.toService())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuoteResponse(res))
}

func (s *HTTPServer) handleStartWizard(w http.ResponseWriter, r *http.Request) {
	var req startWizardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	session, err := s.svc.Wizards.Start(r.Context(), req.VenueID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/wizards/"+session.ID)
	s.writeWizard(w, http.StatusCreated, session)
}

func (s *HTTPServer) handleGetWizard(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.Wizards.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeWizard(w, http.StatusOK, session)
}

func (s *HTTPServer) handleCancelWizard(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Wizards.Cancel(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleWizardDetails(w http.ResponseWriter, r *http.Request) {
	var req detailsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	session, err := s.svc.Wizards.UpdateDetails(r.Context(), r.PathValue("id"), req.toUpdate())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeWizard(w, http.StatusOK, session)
}

func (s *HTTPServer) handleWizardPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	session, err := s.svc.Wizards.UpdatePayment(r.Context(), r.PathValue("id"), req.toUpdate())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeWizard(w, http.StatusOK, session)
}

type wizardStepFunc func(*service.WizardService, context.Context, string) (*models.WizardSession, error)

// wizardAction serves the body-less step transitions.
func (s *HTTPServer) wizardAction(step wizardStepFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := step(s.svc.Wizards, r.Context(), r.PathValue("id"))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeWizard(w, http.StatusOK, session)
	}
}

func (s *HTTPServer) writeWizard(w http.ResponseWriter, code int, session *models.WizardSession) {
	writeJSON(w, code, newWizardView(session, s.svc.Wizards.HoldAmount))
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := s.svc.Bookings.GetBookingByReference(r.Context(), normalizeReference(r.PathValue("reference")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type bookingTransitionFunc func(domain.BookingService, context.Context, string, int64) (*models.Booking, error)

func (s *HTTPServer) bookingAction(transition bookingTransitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req versionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		booking, err := transition(s.svc.Bookings, r.Context(), normalizeReference(r.PathValue("reference")), req.Version)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	}
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	if s.svc.Exporter == nil {
		writeError(w, http.StatusNotImplemented, "exports are disabled")
		return
	}

	q := r.URL.Query()
	from, err := time.Parse(models.DateLayout, strings.TrimSpace(q.Get("from")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from; expected YYYY-MM-DD")
		return
	}
	to, err := time.Parse(models.DateLayout, strings.TrimSpace(q.Get("to")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to; expected YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return
	}
	if to.Sub(from) > maxExportDays*24*time.Hour {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("period longer than %d days", maxExportDays))
		return
	}

	// Книга собирается в памяти целиком до записи заголовков
	var buf bytes.Buffer
	if err := s.svc.Exporter.Write(r.Context(), &buf, from, to); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(from, to)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func normalizeReference(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}
