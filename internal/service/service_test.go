package service

import (
	"context"
	"testing"
	"time"

	"slotbook/internal/database"
	"slotbook/internal/events"
	"slotbook/internal/models"
	"slotbook/internal/slots"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Monday 2030-03-04, 08:00 UTC: before the first slot of the day.
var testNow = time.Date(2030, 3, 4, 8, 0, 0, 0, time.UTC)

func at(day, hour, minute int) time.Time {
	return time.Date(2030, 3, day, hour, minute, 0, 0, time.UTC)
}

func newTestGrid(t *testing.T, capacity int) *slots.Grid {
	t.Helper()
	windows, err := slots.ParseWindows("09:00-12:00,13:00-17:00")
	require.NoError(t, err)
	g, err := slots.NewGrid(windows, 30*time.Minute, capacity, time.UTC)
	require.NoError(t, err)
	return g
}

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type services struct {
	db       *database.DB
	grid     *slots.Grid
	bus      *events.EventBus
	calendar *CalendarService
	booking  *BookingService
	history  *HistoryService
	admin    *AdminService
}

func setupServices(t *testing.T, capacity int) *services {
	t.Helper()
	logger := zerolog.Nop()
	db := setupTestDB(t)
	grid := newTestGrid(t, capacity)
	bus := events.NewEventBus(&logger)

	s := &services{
		db:       db,
		grid:     grid,
		bus:      bus,
		calendar: NewCalendarService(db, nil, grid, &logger),
		booking:  NewBookingService(db, grid, bus, &logger),
		history:  NewHistoryService(db),
		admin:    NewAdminService(db, grid, bus, &logger),
	}
	now := func() time.Time { return testNow }
	s.calendar.now = now
	s.booking.now = now
	s.history.now = now
	return s
}

// captureEvents records every event of the given types published on bus.
func captureEvents(bus *events.EventBus, types ...string) *[]*events.Event {
	var got []*events.Event
	bus.SubscribeAll(func(e *events.Event) error {
		got = append(got, e)
		return nil
	}, types...)
	return &got
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) ClaimOpening(ctx context.Context, t time.Time, capacity int) (*models.TimeSlot, error) {
	args := m.Called(ctx, t, capacity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimeSlot), args.Error(1)
}
func (m *mockRepo) ReleaseOpening(ctx context.Context, t time.Time) error {
	return m.Called(ctx, t).Error(0)
}
func (m *mockRepo) ReadOpenings(ctx context.Context, t time.Time, capacity int) (int, error) {
	args := m.Called(ctx, t, capacity)
	return args.Int(0), args.Error(1)
}
func (m *mockRepo) ReadOpeningsRange(ctx context.Context, from, to time.Time) (map[int64]int, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]int), args.Error(1)
}
func (m *mockRepo) GetTimeSlot(ctx context.Context, t time.Time) (*models.TimeSlot, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimeSlot), args.Error(1)
}
func (m *mockRepo) SetOpenings(ctx context.Context, t time.Time, openings int) (*models.TimeSlot, error) {
	args := m.Called(ctx, t, openings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimeSlot), args.Error(1)
}
func (m *mockRepo) HasConfirmedBooking(ctx context.Context, userID string, t time.Time) (bool, error) {
	args := m.Called(ctx, userID, t)
	return args.Bool(0), args.Error(1)
}
func (m *mockRepo) CreateBooking(ctx context.Context, userID string, t time.Time, capacity int) (*models.Booking, error) {
	args := m.Called(ctx, userID, t, capacity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) CancelBooking(ctx context.Context, userID string, id int64) (*models.Booking, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) CancelBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) ListUserBookings(ctx context.Context, q models.BookingQuery) ([]*models.Booking, bool, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]*models.Booking), args.Bool(1), args.Error(2)
}
func (m *mockRepo) ListBookings(ctx context.Context, f models.AdminBookingFilter) ([]*models.Booking, int, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Booking), args.Int(1), args.Error(2)
}
func (m *mockRepo) ListBookingsAt(ctx context.Context, t time.Time) ([]*models.Booking, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockRepo) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
func (m *mockRepo) Close() error {
	return m.Called().Error(0)
}
