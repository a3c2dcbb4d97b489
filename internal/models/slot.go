package models

import "time"

// TimeSlot is the materialized capacity record of a single slot start time.
// A slot with no record has the configured default capacity.
type TimeSlot struct {
	ID        int64     `json:"id"`
	Time      time.Time `json:"time"`
	Openings  int       `json:"openings"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SlotAvailability struct {
	Time     time.Time `json:"time"`
	Openings int       `json:"openings"`
	Past     bool      `json:"past"`
}

type CalendarDay struct {
	Date string `json:"date"` // YYYY-MM-DD in the office timezone
	Full bool   `json:"full"`
	Past bool   `json:"past"`
}

type Calendar struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Days  []CalendarDay `json:"days"`
}

// SlotDetail is the operator view of a slot: its capacity record and every booking made for it.
type SlotDetail struct {
	Slot         TimeSlot   `json:"slot"`
	Materialized bool       `json:"materialized"`
	Bookings     []*Booking `json:"bookings"`
}
