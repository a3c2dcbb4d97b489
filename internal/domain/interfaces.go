package domain

import (
	"context"
	"io"
	"time"

	"slotbook/internal/models"
)

// Repository is the persistence boundary for slot capacity and bookings.
// Both the SQLite and the PostgreSQL stores implement it.
type Repository interface {
	ClaimOpening(ctx context.Context, t time.Time, capacity int) (*models.TimeSlot, error)
	ReleaseOpening(ctx context.Context, t time.Time) error
	ReadOpenings(ctx context.Context, t time.Time, capacity int) (int, error)
	ReadOpeningsRange(ctx context.Context, from, to time.Time) (map[int64]int, error)
	GetTimeSlot(ctx context.Context, t time.Time) (*models.TimeSlot, error)
	SetOpenings(ctx context.Context, t time.Time, openings int) (*models.TimeSlot, error)

	HasConfirmedBooking(ctx context.Context, userID string, t time.Time) (bool, error)
	CreateBooking(ctx context.Context, userID string, t time.Time, capacity int) (*models.Booking, error)
	CancelBooking(ctx context.Context, userID string, id int64) (*models.Booking, error)
	CancelBookingByID(ctx context.Context, id int64) (*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListUserBookings(ctx context.Context, q models.BookingQuery) ([]*models.Booking, bool, error)
	ListBookings(ctx context.Context, f models.AdminBookingFilter) ([]*models.Booking, int, error)
	ListBookingsAt(ctx context.Context, t time.Time) ([]*models.Booking, error)

	Ping(ctx context.Context) error
	Close() error
}

// CacheRepository holds month summaries and per-user request counters.
// A miss is reported as (nil, nil).
type CacheRepository interface {
	GetCalendar(ctx context.Context, year, month int) (*models.Calendar, error)
	SetCalendar(ctx context.Context, cal *models.Calendar) error
	InvalidateCalendar(ctx context.Context, year, month int) error
	CheckRateLimit(ctx context.Context, userID string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type CalendarService interface {
	Calendar(ctx context.Context, year, month int) (*models.Calendar, error)
	IsDayFull(ctx context.Context, year, month, day int) (bool, error)
	SlotsForDay(ctx context.Context, year, month, day int) ([]models.SlotAvailability, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, userID string, t time.Time) (*models.Booking, error)
	CancelBooking(ctx context.Context, userID string, id int64) (*models.Booking, error)
}

type HistoryService interface {
	ListBookings(ctx context.Context, userID string, after int64, limit int, past bool) (*models.BookingPage, error)
}

type AdminService interface {
	SlotDetail(ctx context.Context, t time.Time) (*models.SlotDetail, error)
	SetSlotOpenings(ctx context.Context, t time.Time, openings int) (*models.TimeSlot, error)
	ListBookings(ctx context.Context, f models.AdminBookingFilter) (*models.AdminBookingList, error)
	CancelBooking(ctx context.Context, id int64) (*models.Booking, error)
	ExportBookings(ctx context.Context, f models.AdminBookingFilter, w io.Writer) error
}
