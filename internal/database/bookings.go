package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/models"
)

const bookingColumns = `id, user_id, time, status, created_at, updated_at`

func (db *DB) HasConfirmedBooking(ctx context.Context, userID string, t time.Time) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM bookings WHERE user_id = ? AND time = ? AND status = ?)`,
		userID, formatTime(t), models.StatusConfirmed).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existing booking: %w", err)
	}
	return exists, nil
}

// CreateBooking inserts a confirmed booking and claims an opening of its slot in
// one transaction. A duplicate confirmed booking yields domain.ErrAlreadyBooked and
// a full slot yields domain.ErrSlotFull; in both cases nothing is written.
func (db *DB) CreateBooking(ctx context.Context, userID string, t time.Time, capacity int) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := formatTime(db.now())
	booking, err := scanBooking(tx.QueryRowContext(ctx, `
        INSERT INTO bookings (user_id, time, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)
        RETURNING `+bookingColumns,
		userID, formatTime(t), models.StatusConfirmed, now, now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrAlreadyBooked
		}
		return nil, fmt.Errorf("failed to insert booking: %w", err)
	}

	if _, err := db.claimOpening(ctx, tx, t, capacity); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return booking, nil
}

// CancelBooking moves a confirmed booking owned by userID to CANCELLED.
// The opening is not released here.
func (db *DB) CancelBooking(ctx context.Context, userID string, id int64) (*models.Booking, error) {
	booking, err := scanBooking(db.QueryRowContext(ctx, `
        UPDATE bookings SET status = ?, updated_at = ?
        WHERE id = ? AND user_id = ? AND status = ?
        RETURNING `+bookingColumns,
		models.StatusCancelled, formatTime(db.now()), id, userID, models.StatusConfirmed))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	return booking, nil
}

// CancelBookingByID is CancelBooking without the ownership check.
func (db *DB) CancelBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := scanBooking(db.QueryRowContext(ctx, `
        UPDATE bookings SET status = ?, updated_at = ?
        WHERE id = ? AND status = ?
        RETURNING `+bookingColumns,
		models.StatusCancelled, formatTime(db.now()), id, models.StatusConfirmed))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	return booking, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := scanBooking(db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// ListUserBookings returns up to q.Limit bookings of one user ordered by (time, id),
// ascending for upcoming and descending for past bookings, resuming strictly after
// the cursor booking. The bool result reports whether more rows follow.
func (db *DB) ListUserBookings(ctx context.Context, q models.BookingQuery) ([]*models.Booking, bool, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = models.DefaultHistoryLimit
	}

	var (
		where = []string{"user_id = ?"}
		args  = []any{q.UserID}
		order = "time ASC, id ASC"
	)

	now := formatTime(q.Now)
	if q.Past {
		where = append(where, "time < ?")
		order = "time DESC, id DESC"
	} else {
		where = append(where, "time >= ?")
	}
	args = append(args, now)

	if q.After > 0 {
		var cursorTime string
		err := db.QueryRowContext(ctx,
			`SELECT time FROM bookings WHERE id = ? AND user_id = ?`, q.After, q.UserID).Scan(&cursorTime)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, domain.ErrInvalidCursor
		}
		if err != nil {
			return nil, false, fmt.Errorf("failed to resolve cursor: %w", err)
		}

		if q.Past {
			where = append(where, "(time < ? OR (time = ? AND id < ?))")
		} else {
			where = append(where, "(time > ? OR (time = ? AND id > ?))")
		}
		args = append(args, cursorTime, cursorTime, q.After)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY ` + order + ` LIMIT ?`
	args = append(args, limit+1)

	bookings, err := db.queryBookings(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list user bookings: %w", err)
	}

	hasMore := len(bookings) > limit
	if hasMore {
		bookings = bookings[:limit]
	}
	return bookings, hasMore, nil
}

// ListBookings is the operator listing: filtered, newest first, with the total match count.
func (db *DB) ListBookings(ctx context.Context, f models.AdminBookingFilter) ([]*models.Booking, int, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if !f.From.IsZero() {
		where = append(where, "time >= ?")
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "time < ?")
		args = append(args, formatTime(f.To))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = models.DefaultAdminPageSize
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings` + clause +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	bookings, err := db.queryBookings(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, total, nil
}

// ListBookingsAt returns every booking made for the slot at t, in creation order.
func (db *DB) ListBookingsAt(ctx context.Context, t time.Time) ([]*models.Booking, error) {
	bookings, err := db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE time = ? ORDER BY id ASC`, formatTime(t))
	if err != nil {
		return nil, fmt.Errorf("failed to list slot bookings: %w", err)
	}
	return bookings, nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var bookingTime, created, updated string
	if err := row.Scan(&b.ID, &b.UserID, &bookingTime, &b.Status, &created, &updated); err != nil {
		return nil, err
	}

	var err error
	if b.Time, err = parseTime(bookingTime); err != nil {
		return nil, err
	}
	if b.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &b, nil
}
