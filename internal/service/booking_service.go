package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/events"
	"slotbook/internal/metrics"
	"slotbook/internal/models"
	"slotbook/internal/slots"

	"github.com/rs/zerolog"
)

const (
	actorUser  = "user"
	actorAdmin = "admin"
)

// BookingService allocates slot openings to users. It holds no locks and never
// retries: all atomicity lives in the store.
type BookingService struct {
	repo     domain.Repository
	grid     *slots.Grid
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBookingService(repo domain.Repository, grid *slots.Grid, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:     repo,
		grid:     grid,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateBooking books one opening of the slot starting at t for userID.
func (s *BookingService) CreateBooking(ctx context.Context, userID string, t time.Time) (*models.Booking, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrMissingUser
	}

	if !t.After(s.now()) {
		metrics.IncBooking(metrics.OutcomeInvalidSlot)
		return nil, domain.ErrSlotPassed
	}
	if !s.grid.IsLegal(t) {
		metrics.IncBooking(metrics.OutcomeInvalidSlot)
		return nil, domain.ErrInvalidSlot
	}

	// Fast path only; the unique index decides under concurrency.
	exists, err := s.repo.HasConfirmedBooking(ctx, userID, t)
	if err != nil {
		metrics.IncBooking(metrics.OutcomeError)
		return nil, err
	}
	if exists {
		metrics.IncBooking(metrics.OutcomeAlreadyBooked)
		return nil, domain.ErrAlreadyBooked
	}

	start := time.Now()
	booking, err := s.repo.CreateBooking(ctx, userID, t, s.grid.Capacity())
	metrics.ObserveClaim(time.Since(start))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSlotFull):
			metrics.IncBooking(metrics.OutcomeSlotFull)
		case errors.Is(err, domain.ErrAlreadyBooked):
			metrics.IncBooking(metrics.OutcomeAlreadyBooked)
		default:
			metrics.IncBooking(metrics.OutcomeError)
		}
		return nil, err
	}

	metrics.IncBooking(metrics.OutcomeCreated)
	s.logger.Info().Int64("booking_id", booking.ID).Str("user_id", userID).Time("time", t).Msg("booking created")
	publishBookingEvent(s.eventBus, s.logger, events.EventBookingCreated, booking, actorUser)

	return booking, nil
}

// CancelBooking cancels a confirmed booking owned by userID and returns its opening.
// The cancellation stands even when the opening cannot be returned.
func (s *BookingService) CancelBooking(ctx context.Context, userID string, id int64) (*models.Booking, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrMissingUser
	}

	booking, err := s.repo.CancelBooking(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	releaseOpening(ctx, s.repo, s.logger, booking)
	metrics.IncCancellation(actorUser)
	s.logger.Info().Int64("booking_id", booking.ID).Str("user_id", userID).Msg("booking cancelled")
	publishBookingEvent(s.eventBus, s.logger, events.EventBookingCancelled, booking, actorUser)

	return booking, nil
}

// releaseOpening is best effort: a failure is logged and counted, never returned.
func releaseOpening(ctx context.Context, repo domain.Repository, logger *zerolog.Logger, booking *models.Booking) {
	if err := repo.ReleaseOpening(context.WithoutCancel(ctx), booking.Time); err != nil {
		metrics.IncReleaseFailure()
		logger.Error().
			Err(err).
			Int64("booking_id", booking.ID).
			Time("time", booking.Time).
			Msg("failed to release opening after cancellation")
	}
}

func publishBookingEvent(bus domain.EventPublisher, logger *zerolog.Logger, eventType string, booking *models.Booking, changedBy string) {
	if bus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		UserID:    booking.UserID,
		Time:      booking.Time,
		Status:    booking.Status,
		ChangedBy: changedBy,
	}

	if err := bus.PublishJSON(eventType, payload); err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}
