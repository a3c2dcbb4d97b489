package service

import (
	"context"
	"fmt"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/events"

	"github.com/rs/zerolog"
)

const invalidateTimeout = 2 * time.Second

// RegisterCacheInvalidation drops the cached month of every slot whose openings
// change. A failed invalidation leaves the entry to expire by TTL.
func RegisterCacheInvalidation(bus *events.EventBus, cache domain.CacheRepository, loc *time.Location, logger *zerolog.Logger) {
	if bus == nil || cache == nil {
		return
	}

	invalidate := func(t time.Time) error {
		local := t.In(loc)
		ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
		defer cancel()
		if err := cache.InvalidateCalendar(ctx, local.Year(), int(local.Month())); err != nil {
			return fmt.Errorf("invalidate calendar %04d-%02d: %w", local.Year(), local.Month(), err)
		}
		logger.Debug().Int("year", local.Year()).Int("month", int(local.Month())).Msg("calendar cache invalidated")
		return nil
	}

	bus.SubscribeAll(func(event *events.Event) error {
		var payload events.BookingEventPayload
		if err := event.Decode(&payload); err != nil {
			return err
		}
		return invalidate(payload.Time)
	}, events.EventBookingCreated, events.EventBookingCancelled)

	bus.Subscribe(events.EventSlotOpeningsSet, func(event *events.Event) error {
		var payload events.SlotEventPayload
		if err := event.Decode(&payload); err != nil {
			return err
		}
		return invalidate(payload.Time)
	})
}

// RegisterAuditLog writes one structured line per domain event.
func RegisterAuditLog(bus *events.EventBus, logger *zerolog.Logger) {
	if bus == nil {
		return
	}

	bus.SubscribeAll(func(event *events.Event) error {
		logger.Info().
			Str("event_type", event.Type).
			Time("created_at", event.CreatedAt).
			RawJSON("payload", event.Payload).
			Msg("audit")
		return nil
	}, events.EventBookingCreated, events.EventBookingCancelled, events.EventSlotOpeningsSet)
}
