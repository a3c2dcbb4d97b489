// Package slots derives the legal slot start times of a day from office hours.
package slots

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Window is a half-open office-hours interval expressed as offsets from local midnight.
type Window struct {
	Start time.Duration
	End   time.Duration
}

func (w Window) String() string {
	return fmt.Sprintf("%s-%s", formatClock(w.Start), formatClock(w.End))
}

// Grid is the immutable slot schedule shared by every service.
type Grid struct {
	windows  []Window
	duration time.Duration
	capacity int
	loc      *time.Location
}

var (
	ErrInvalidWindow   = errors.New("invalid office-hours window")
	ErrInvalidDuration = errors.New("slot duration must be positive")
	ErrInvalidCapacity = errors.New("slot capacity must be positive")
)

func NewGrid(windows []Window, duration time.Duration, capacity int, loc *time.Location) (*Grid, error) {
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	for _, w := range windows {
		if w.Start < 0 || w.Start >= w.End || w.End > 24*time.Hour {
			return nil, fmt.Errorf("%w: %s", ErrInvalidWindow, w)
		}
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Grid{
		windows:  append([]Window(nil), windows...),
		duration: duration,
		capacity: capacity,
		loc:      loc,
	}, nil
}

func (g *Grid) Capacity() int { return g.capacity }

func (g *Grid) Duration() time.Duration { return g.duration }

func (g *Grid) Location() *time.Location { return g.loc }

func (g *Grid) Windows() []Window { return append([]Window(nil), g.windows...) }

// ForDay returns the slot start times of a calendar day, window by window in
// configuration order. A slot that would start at or after its window end is not emitted.
func (g *Grid) ForDay(year int, month time.Month, day int) []time.Time {
	midnight := time.Date(year, month, day, 0, 0, 0, 0, g.loc)

	var out []time.Time
	for _, w := range g.windows {
		for offset := w.Start; offset < w.End; offset += g.duration {
			out = append(out, wallClock(midnight, offset, g.loc))
		}
	}
	return out
}

// ForDate is ForDay for the calendar day t falls on in the grid's timezone.
func (g *Grid) ForDate(t time.Time) []time.Time {
	local := t.In(g.loc)
	return g.ForDay(local.Year(), local.Month(), local.Day())
}

// IsLegal reports whether t is exactly one of the slot start times of its day.
func (g *Grid) IsLegal(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	for _, s := range g.ForDate(t) {
		if s.Equal(t) {
			return true
		}
	}
	return false
}

// DayBounds returns [start of day, start of next day) in the grid's timezone.
func (g *Grid) DayBounds(year int, month time.Month, day int) (time.Time, time.Time) {
	start := time.Date(year, month, day, 0, 0, 0, 0, g.loc)
	return start, time.Date(year, month, day+1, 0, 0, 0, 0, g.loc)
}

// DaysIn returns the number of days of the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// wallClock builds the local time for an offset from midnight using the wall clock,
// so slot times stay at their configured hour across DST changes.
func wallClock(midnight time.Time, offset time.Duration, loc *time.Location) time.Time {
	h := int(offset / time.Hour)
	m := int((offset % time.Hour) / time.Minute)
	s := int((offset % time.Minute) / time.Second)
	return time.Date(midnight.Year(), midnight.Month(), midnight.Day(), h, m, s, 0, loc)
}

// ParseWindows parses "HH:MM-HH:MM,HH:MM-HH:MM". Whitespace around entries is ignored.
func ParseWindows(raw string) ([]Window, error) {
	var windows []Window
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		bounds := strings.Split(part, "-")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidWindow, part)
		}
		start, err := parseClock(bounds[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidWindow, part, err)
		}
		end, err := parseClock(bounds[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidWindow, part, err)
		}
		if start >= end {
			return nil, fmt.Errorf("%w: %q starts after it ends", ErrInvalidWindow, part)
		}
		windows = append(windows, Window{Start: start, End: end})
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: no windows in %q", ErrInvalidWindow, raw)
	}
	return windows, nil
}

// CheckOverlap returns an error when two windows share any instant.
func CheckOverlap(windows []Window) error {
	sorted := append([]Window(nil), windows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start < sorted[i-1].End {
			return fmt.Errorf("office-hours windows %s and %s overlap", sorted[i-1], sorted[i])
		}
	}
	return nil
}

func parseClock(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", raw)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	if h == 24 && m != 0 {
		return 0, fmt.Errorf("%q is past midnight", raw)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

func formatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int((d%time.Hour)/time.Minute))
}
