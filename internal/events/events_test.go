package events

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus(nil)

	var received *Event
	var callCount int

	bus.Subscribe(EventBookingCreated, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	slotTime := time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)
	err := bus.PublishJSON(EventBookingCreated, BookingEventPayload{BookingID: 7, UserID: "alice", Time: slotTime})
	require.NoError(t, err)

	assert.Equal(t, 1, callCount)
	require.NotNil(t, received)
	assert.Equal(t, EventBookingCreated, received.Type)
	assert.False(t, received.CreatedAt.IsZero())

	var decoded BookingEventPayload
	require.NoError(t, received.Decode(&decoded))
	assert.Equal(t, int64(7), decoded.BookingID)
	assert.Equal(t, "alice", decoded.UserID)
	assert.True(t, decoded.Time.Equal(slotTime))
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus(nil)
	var count1, count2 int

	bus.Subscribe("event", func(_ *Event) error { count1++; return nil })
	bus.Subscribe("event", func(_ *Event) error { count2++; return nil })

	bus.Publish(&Event{Type: "event"})

	assert.Equal(t, 1, count1)
	assert.Equal(t, 1, count2)
}

func TestEventBusFailingHandlerIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	bus := NewEventBus(&logger)

	var secondCalled bool
	bus.Subscribe("event", func(_ *Event) error { return errors.New("boom") })
	bus.Subscribe("event", func(_ *Event) error { secondCalled = true; return nil })

	bus.Publish(&Event{Type: "event"})

	assert.True(t, secondCalled)
	assert.Contains(t, buf.String(), "boom")
}

func TestEventBusSubscribeAll(t *testing.T) {
	bus := NewEventBus(nil)
	var seen []string
	bus.SubscribeAll(func(e *Event) error { seen = append(seen, e.Type); return nil },
		EventBookingCreated, EventBookingCancelled)

	bus.Publish(&Event{Type: EventBookingCancelled})
	bus.Publish(&Event{Type: EventSlotOpeningsSet})
	bus.Publish(&Event{Type: EventBookingCreated})

	assert.Equal(t, []string{EventBookingCancelled, EventBookingCreated}, seen)
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus(nil)
	assert.NotPanics(t, func() { bus.Publish(&Event{Type: "unknown"}) })
	assert.NoError(t, bus.PublishJSON("unknown", nil))

	var nilBus *EventBus
	assert.NoError(t, nilBus.PublishJSON("unknown", nil))
}

func TestNewJSONEvent(t *testing.T) {
	event, err := NewJSONEvent(EventSlotOpeningsSet, SlotEventPayload{Openings: 3})
	require.NoError(t, err)
	assert.Equal(t, EventSlotOpeningsSet, event.Type)
	assert.False(t, event.CreatedAt.IsZero())

	var decoded SlotEventPayload
	require.NoError(t, event.Decode(&decoded))
	assert.Equal(t, 3, decoded.Openings)

	_, err = NewJSONEvent("bad", make(chan int))
	assert.Error(t, err)
}
