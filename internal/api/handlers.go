package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/models"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxBodyBytes    = 1 << 16
	healthTimeout   = 2 * time.Second
)

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// withUser requires the opaque user id header set by the calling service.
func (s *HTTPServer) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(s.userHeader))
		if userID == "" {
			writeServiceError(w, r, s.logger, domain.ErrMissingUser)
			return
		}
		next(w, r, userID)
	}
}

// limitUser caps booking mutations per user. The check fails open when the
// cache is unavailable.
func (s *HTTPServer) limitUser(next userHandler) userHandler {
	return func(w http.ResponseWriter, r *http.Request, userID string) {
		if s.deps.Cache != nil && s.userRateLimit > 0 {
			allowed, err := s.deps.Cache.CheckRateLimit(r.Context(), userID, s.userRateLimit, s.userRateWindow)
			if err != nil {
				s.logger.Warn().Err(err).Str("user_id", userID).Msg("user rate limit check failed")
			} else if !allowed {
				writeServiceError(w, r, s.logger, domain.ErrRateLimited)
				return
			}
		}
		next(w, r, userID)
	}
}

func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, errY := strconv.Atoi(strings.TrimSpace(q.Get("year")))
	month, errM := strconv.Atoi(strings.TrimSpace(q.Get("month")))
	if errY != nil || errM != nil {
		writeServiceError(w, r, s.logger, domain.ErrInvalidDate)
		return
	}

	cal, err := s.deps.Calendar.Calendar(r.Context(), year, month)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cal)
}

func (s *HTTPServer) handleTimeSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, errY := strconv.Atoi(strings.TrimSpace(q.Get("year")))
	month, errM := strconv.Atoi(strings.TrimSpace(q.Get("month")))
	day, errD := strconv.Atoi(strings.TrimSpace(q.Get("day")))
	if errY != nil || errM != nil || errD != nil {
		writeServiceError(w, r, s.logger, domain.ErrInvalidDate)
		return
	}

	slots, err := s.deps.Calendar.SlotsForDay(r.Context(), year, month, day)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  fmt.Sprintf("%04d-%02d-%02d", year, month, day),
		"slots": slots,
	})
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		Time string `json:"time"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeServiceError(w, r, s.logger, domain.ErrInvalidRequest)
		return
	}

	t, err := time.Parse(time.RFC3339, strings.TrimSpace(body.Time))
	if err != nil {
		writeServiceError(w, r, s.logger, domain.ErrInvalidSlot)
		return
	}

	booking, err := s.deps.Bookings.CreateBooking(r.Context(), userID, t)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()

	var after int64
	if raw := strings.TrimSpace(q.Get("after")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeServiceError(w, r, s.logger, domain.ErrInvalidCursor)
			return
		}
		after = v
	}

	limit, err := optionalInt(q.Get("limit"))
	if err != nil {
		writeServiceError(w, r, s.logger, domain.ErrInvalidRequest)
		return
	}

	past := false
	if raw := strings.TrimSpace(q.Get("past")); raw != "" {
		past, err = strconv.ParseBool(raw)
		if err != nil {
			writeServiceError(w, r, s.logger, domain.ErrInvalidRequest)
			return
		}
	}

	page, err := s.deps.History.ListBookings(r.Context(), userID, after, limit, past)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request, userID string) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeServiceError(w, r, s.logger, domain.ErrBookingNotFound)
		return
	}

	if _, err := s.deps.Bookings.CancelBooking(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleSlotDetail(w http.ResponseWriter, r *http.Request) {
	t, err := time.Parse(time.RFC3339, r.PathValue("time"))
	if err != nil {
		writeServiceError(w, r, s.logger, domain.ErrInvalidSlot)
		return
	}

	detail, err := s.deps.Admin.SlotDetail(r.Context(), t)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *HTTPServer) handleSetOpenings(w http.ResponseWriter, r *http.Request) {
	t, err := time.Parse(time.RFC3339, r.PathValue("time"))
	if err != nil {
		writeServiceError(w, r, s.logger, domain.ErrInvalidSlot)
		return
	}

	var body struct {
		Openings *int `json:"openings"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeServiceError(w, r, s.logger, domain.ErrInvalidRequest)
		return
	}
	if body.Openings == nil {
		writeServiceError(w, r, s.logger, domain.ErrInvalidOpenings)
		return
	}

	slot, err := s.deps.Admin.SetSlotOpenings(r.Context(), t, *body.Openings)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (s *HTTPServer) handleAdminBookings(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseAdminFilter(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}

	list, err := s.deps.Admin.ListBookings(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseAdminFilter(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}

	// Buffered so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := s.deps.Admin.ExportBookings(r.Context(), f, &buf); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}

	fileName := fmt.Sprintf("bookings_%s.xlsx", time.Now().In(s.loc).Format("20060102_150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) handleAdminCancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeServiceError(w, r, s.logger, domain.ErrBookingNotFound)
		return
	}

	booking, err := s.deps.Admin.CancelBooking(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseAdminFilter reads user_id, status, from, to, limit and offset. from and to
// accept RFC 3339 or a bare date in the office timezone.
func (s *HTTPServer) parseAdminFilter(r *http.Request) (models.AdminBookingFilter, error) {
	q := r.URL.Query()
	f := models.AdminBookingFilter{
		UserID: strings.TrimSpace(q.Get("user_id")),
		Status: strings.TrimSpace(q.Get("status")),
	}

	var err error
	if f.Limit, err = optionalInt(q.Get("limit")); err != nil {
		return f, domain.ErrInvalidRequest
	}
	if f.Offset, err = optionalInt(q.Get("offset")); err != nil {
		return f, domain.ErrInvalidRequest
	}
	if f.From, err = s.optionalTime(q.Get("from")); err != nil {
		return f, domain.ErrInvalidDate
	}
	if f.To, err = s.optionalTime(q.Get("to")); err != nil {
		return f, domain.ErrInvalidDate
	}
	return f, nil
}

func (s *HTTPServer) optionalTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", raw, s.loc)
}

func optionalInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
