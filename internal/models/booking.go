package models

import "time"

// Booking is one user's claim on one opening of a time slot.
type Booking struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Time      time.Time `json:"time"`
	Status    string    `json:"status"` // CONFIRMED, CANCELLED
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Booking) IsConfirmed() bool {
	return b != nil && b.Status == StatusConfirmed
}

// BookingQuery selects one page of a user's booking history.
type BookingQuery struct {
	UserID string
	After  int64 // booking id of the last row of the previous page, 0 for the first page
	Limit  int
	Past   bool
	Now    time.Time
}

type BookingPage struct {
	Bookings   []*Booking `json:"bookings"`
	HasMore    bool       `json:"has_more"`
	NextCursor int64      `json:"next_cursor,omitempty"`
}

// AdminBookingFilter is the offset-paginated listing used by operators.
type AdminBookingFilter struct {
	UserID string
	Status string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

type AdminBookingList struct {
	Bookings []*Booking `json:"bookings"`
	Total    int        `json:"total"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}
