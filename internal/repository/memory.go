package repository

import (
	"context"
	"sync"
	"time"

	"slotbook/internal/models"
)

// MemoryCacheRepository is the single-process cache used when Redis is not configured
// or unreachable.
type MemoryCacheRepository struct {
	calendars sync.Map // calendarKey -> calendarEntry

	mu         sync.Mutex
	rateLimits map[string]*rateLimitEntry

	ttl time.Duration
	now func() time.Time
}

type calendarEntry struct {
	calendar  models.Calendar
	expiresAt time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryCacheRepository(ttl time.Duration) *MemoryCacheRepository {
	return &MemoryCacheRepository{
		rateLimits: make(map[string]*rateLimitEntry),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (r *MemoryCacheRepository) GetCalendar(ctx context.Context, year, month int) (*models.Calendar, error) {
	key := calendarKey(year, month)
	val, ok := r.calendars.Load(key)
	if !ok {
		return nil, nil
	}
	entry := val.(calendarEntry)
	if r.now().After(entry.expiresAt) {
		r.calendars.Delete(key)
		return nil, nil
	}

	cal := entry.calendar
	cal.Days = append([]models.CalendarDay(nil), entry.calendar.Days...)
	return &cal, nil
}

func (r *MemoryCacheRepository) SetCalendar(ctx context.Context, cal *models.Calendar) error {
	stored := *cal
	stored.Days = append([]models.CalendarDay(nil), cal.Days...)
	r.calendars.Store(calendarKey(cal.Year, cal.Month), calendarEntry{
		calendar:  stored,
		expiresAt: r.now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryCacheRepository) InvalidateCalendar(ctx context.Context, year, month int) error {
	r.calendars.Delete(calendarKey(year, month))
	return nil
}

func (r *MemoryCacheRepository) CheckRateLimit(ctx context.Context, userID string, limit int, window time.Duration) (bool, error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rateLimits[userID]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[userID] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}
