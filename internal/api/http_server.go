package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"slotbook/internal/config"
	"slotbook/internal/domain"

	"github.com/rs/zerolog"
)

const healthPath = "/healthz"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the HTTP API. Cache is optional; without it the
// per-user booking limit is not enforced.
type Deps struct {
	Calendar domain.CalendarService
	Bookings domain.BookingService
	History  domain.HistoryService
	Admin    domain.AdminService
	Cache    domain.CacheRepository
	Store    Pinger
}

// HTTPServer exposes the booking API over JSON/HTTP.
type HTTPServer struct {
	cfg    config.APIConfig
	deps   Deps
	logger *zerolog.Logger
	server *http.Server
	auth   *HTTPAuth

	userHeader     string
	userRateLimit  int
	userRateWindow time.Duration
	loc            *time.Location
}

func NewHTTPServer(cfg config.APIConfig, booking config.BookingConfig, loc *time.Location, deps Deps, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:            cfg,
		deps:           deps,
		logger:         logger,
		auth:           NewHTTPAuth(cfg),
		userHeader:     strings.TrimSpace(cfg.HTTP.HeaderUserID),
		userRateLimit:  booking.UserRateLimit,
		userRateWindow: time.Duration(booking.UserRateLimitWindow) * time.Second,
		loc:            loc,
	}
	if srv.userHeader == "" {
		srv.userHeader = "x-user-id"
	}
	if srv.loc == nil {
		srv.loc = time.UTC
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/calendar", srv.handleCalendar)
	mux.HandleFunc("GET /api/timeslots", srv.handleTimeSlots)
	mux.HandleFunc("POST /api/bookings", srv.withUser(srv.limitUser(srv.handleCreateBooking)))
	mux.HandleFunc("GET /api/bookings", srv.withUser(srv.handleListBookings))
	mux.HandleFunc("DELETE /api/bookings/{id}", srv.withUser(srv.limitUser(srv.handleCancelBooking)))

	mux.HandleFunc("GET /api/admin/timeslots/{time}", srv.handleSlotDetail)
	mux.HandleFunc("PATCH /api/admin/timeslots/{time}", srv.handleSetOpenings)
	mux.HandleFunc("GET /api/admin/bookings", srv.handleAdminBookings)
	mux.HandleFunc("GET /api/admin/bookings/export", srv.handleExportBookings)
	mux.HandleFunc("POST /api/admin/bookings/{id}/cancel", srv.handleAdminCancel)

	mux.HandleFunc("GET "+healthPath, srv.handleHealth)

	handler := loggingMiddleware(logger, recoverMiddleware(logger, srv.auth.Wrap(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler returns the full middleware chain, for tests and embedding.
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
