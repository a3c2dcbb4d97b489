package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"slotbook/internal/events"
	"slotbook/internal/models"
	"slotbook/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()
	bus := events.NewEventBus(&logger)
	cache := repository.NewMemoryCacheRepository(time.Minute)
	RegisterCacheInvalidation(bus, cache, time.UTC, &logger)

	cases := []struct {
		name    string
		publish func() error
	}{
		{"BookingCreated", func() error {
			return bus.PublishJSON(events.EventBookingCreated, events.BookingEventPayload{BookingID: 1, Time: at(4, 9, 0)})
		}},
		{"BookingCancelled", func() error {
			return bus.PublishJSON(events.EventBookingCancelled, events.BookingEventPayload{BookingID: 1, Time: at(4, 9, 0)})
		}},
		{"SlotOpeningsSet", func() error {
			return bus.PublishJSON(events.EventSlotOpeningsSet, events.SlotEventPayload{Time: at(4, 9, 0), Openings: 2})
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, cache.SetCalendar(ctx, &models.Calendar{Year: 2030, Month: 3}))
			require.NoError(t, cache.SetCalendar(ctx, &models.Calendar{Year: 2030, Month: 4}))

			require.NoError(t, tc.publish())

			got, err := cache.GetCalendar(ctx, 2030, 3)
			require.NoError(t, err)
			assert.Nil(t, got)

			other, err := cache.GetCalendar(ctx, 2030, 4)
			require.NoError(t, err)
			assert.NotNil(t, other, "other months stay cached")
		})
	}

	t.Run("OfficeTimezoneMonth", func(t *testing.T) {
		loc := time.FixedZone("UTC+3", 3*60*60)
		tzBus := events.NewEventBus(&logger)
		RegisterCacheInvalidation(tzBus, cache, loc, &logger)

		require.NoError(t, cache.SetCalendar(ctx, &models.Calendar{Year: 2030, Month: 4}))
		// 2030-03-31 22:00 UTC is already April in UTC+3.
		require.NoError(t, tzBus.PublishJSON(events.EventSlotOpeningsSet, events.SlotEventPayload{
			Time: time.Date(2030, 3, 31, 22, 0, 0, 0, time.UTC),
		}))

		got, err := cache.GetCalendar(ctx, 2030, 4)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("NilCache", func(t *testing.T) {
		assert.NotPanics(t, func() {
			RegisterCacheInvalidation(events.NewEventBus(&logger), nil, time.UTC, &logger)
		})
	})
}

func TestRegisterAuditLog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	bus := events.NewEventBus(&logger)
	RegisterAuditLog(bus, &logger)

	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, events.BookingEventPayload{BookingID: 42, UserID: "alice"}))

	out := buf.String()
	assert.Contains(t, out, `"event_type":"booking_created"`)
	assert.Contains(t, out, `"booking_id":42`)
	assert.Contains(t, out, `"message":"audit"`)
}
