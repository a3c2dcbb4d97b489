package service

import (
	"context"
	"fmt"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/models"
	"slotbook/internal/slots"

	"github.com/rs/zerolog"
)

const (
	minYear = 1970
	maxYear = 2100
)

// CalendarService answers read-only availability questions. Its answers may be
// stale by the time the caller acts on them.
type CalendarService struct {
	repo   domain.Repository
	cache  domain.CacheRepository
	grid   *slots.Grid
	logger *zerolog.Logger
	now    func() time.Time
}

// NewCalendarService builds the service. cache may be nil.
func NewCalendarService(repo domain.Repository, cache domain.CacheRepository, grid *slots.Grid, logger *zerolog.Logger) *CalendarService {
	return &CalendarService{
		repo:   repo,
		cache:  cache,
		grid:   grid,
		logger: logger,
		now:    time.Now,
	}
}

// Calendar summarizes every day of a month: whether all its slots are taken and
// whether the day is before today.
func (s *CalendarService) Calendar(ctx context.Context, year, month int) (*models.Calendar, error) {
	if err := validateDate(year, month, 1); err != nil {
		return nil, err
	}

	if cal := s.cachedCalendar(ctx, year, month); cal != nil {
		s.markPast(cal)
		return cal, nil
	}

	loc := s.grid.Location()
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 1, 0)

	openings, err := s.repo.ReadOpeningsRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to read month openings: %w", err)
	}

	days := slots.DaysIn(year, time.Month(month))
	cal := &models.Calendar{Year: year, Month: month, Days: make([]models.CalendarDay, 0, days)}
	for day := 1; day <= days; day++ {
		cal.Days = append(cal.Days, models.CalendarDay{
			Date: from.AddDate(0, 0, day-1).Format("2006-01-02"),
			Full: s.dayFull(s.grid.ForDay(year, time.Month(month), day), openings),
		})
	}

	if s.cache != nil {
		if err := s.cache.SetCalendar(ctx, cal); err != nil {
			s.logger.Warn().Err(err).Int("year", year).Int("month", month).Msg("failed to cache calendar")
		}
	}

	s.markPast(cal)
	return cal, nil
}

// IsDayFull reports whether every slot of the day has no openings left.
// A day without slots is never full.
func (s *CalendarService) IsDayFull(ctx context.Context, year, month, day int) (bool, error) {
	if err := validateDate(year, month, day); err != nil {
		return false, err
	}

	daySlots := s.grid.ForDay(year, time.Month(month), day)
	if len(daySlots) == 0 {
		return false, nil
	}

	from, to := s.grid.DayBounds(year, time.Month(month), day)
	openings, err := s.repo.ReadOpeningsRange(ctx, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to read day openings: %w", err)
	}
	return s.dayFull(daySlots, openings), nil
}

// SlotsForDay lists every slot of the day with its openings. Slots are never
// filtered out, a full or started slot is reported with its actual state.
func (s *CalendarService) SlotsForDay(ctx context.Context, year, month, day int) ([]models.SlotAvailability, error) {
	if err := validateDate(year, month, day); err != nil {
		return nil, err
	}
	return s.ListSlots(ctx, time.Date(year, time.Month(month), day, 12, 0, 0, 0, s.grid.Location()))
}

// ListSlots is SlotsForDay for the calendar day of t in the office timezone.
func (s *CalendarService) ListSlots(ctx context.Context, t time.Time) ([]models.SlotAvailability, error) {
	local := t.In(s.grid.Location())
	from, to := s.grid.DayBounds(local.Year(), local.Month(), local.Day())

	openings, err := s.repo.ReadOpeningsRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to read day openings: %w", err)
	}

	now := s.now()
	daySlots := s.grid.ForDate(local)
	result := make([]models.SlotAvailability, 0, len(daySlots))
	for _, slotTime := range daySlots {
		n, ok := openings[slotTime.Unix()]
		if !ok {
			n = s.grid.Capacity()
		}
		result = append(result, models.SlotAvailability{
			Time:     slotTime,
			Openings: n,
			Past:     !slotTime.After(now),
		})
	}
	return result, nil
}

func (s *CalendarService) dayFull(daySlots []time.Time, openings map[int64]int) bool {
	if len(daySlots) == 0 {
		return false
	}
	for _, slotTime := range daySlots {
		n, ok := openings[slotTime.Unix()]
		if !ok || n > 0 {
			return false
		}
	}
	return true
}

func (s *CalendarService) cachedCalendar(ctx context.Context, year, month int) *models.Calendar {
	if s.cache == nil {
		return nil
	}
	cal, err := s.cache.GetCalendar(ctx, year, month)
	if err != nil {
		s.logger.Warn().Err(err).Int("year", year).Int("month", month).Msg("calendar cache read failed")
		return nil
	}
	return cal
}

// markPast flags days strictly before today in the office timezone.
func (s *CalendarService) markPast(cal *models.Calendar) {
	today := s.now().In(s.grid.Location()).Format("2006-01-02")
	for i := range cal.Days {
		cal.Days[i].Past = cal.Days[i].Date < today
	}
}

func validateDate(year, month, day int) error {
	if year < minYear || year > maxYear || month < 1 || month > 12 {
		return domain.ErrInvalidDate
	}
	if day < 1 || day > slots.DaysIn(year, time.Month(month)) {
		return domain.ErrInvalidDate
	}
	return nil
}
