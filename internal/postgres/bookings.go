package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/models"

	"github.com/jackc/pgx/v5"
)

const bookingColumns = `id, user_id, time, status, created_at, updated_at`

func (s *Store) HasConfirmedBooking(ctx context.Context, userID string, t time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM bookings WHERE user_id = $1 AND time = $2 AND status = $3)`,
		userID, t.UTC(), models.StatusConfirmed).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check existing booking: %w", err)
	}
	return exists, nil
}

// CreateBooking inserts the booking and claims an opening in one transaction.
func (s *Store) CreateBooking(ctx context.Context, userID string, t time.Time, capacity int) (*models.Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	now := s.now().UTC()
	booking, err := scanBooking(tx.QueryRow(ctx, `
		INSERT INTO bookings (user_id, time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING `+bookingColumns,
		userID, t.UTC(), models.StatusConfirmed, now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrAlreadyBooked
		}
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	if _, err := s.claimOpening(ctx, tx, t, capacity); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return booking, nil
}

func (s *Store) CancelBooking(ctx context.Context, userID string, id int64) (*models.Booking, error) {
	booking, err := scanBooking(s.pool.QueryRow(ctx, `
		UPDATE bookings SET status = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4 AND status = $5
		RETURNING `+bookingColumns,
		models.StatusCancelled, s.now().UTC(), id, userID, models.StatusConfirmed))
	if isNotFound(err) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	return booking, nil
}

func (s *Store) CancelBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := scanBooking(s.pool.QueryRow(ctx, `
		UPDATE bookings SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING `+bookingColumns,
		models.StatusCancelled, s.now().UTC(), id, models.StatusConfirmed))
	if isNotFound(err) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	return booking, nil
}

func (s *Store) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := scanBooking(s.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if isNotFound(err) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return booking, nil
}

func (s *Store) ListUserBookings(ctx context.Context, q models.BookingQuery) ([]*models.Booking, bool, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = models.DefaultHistoryLimit
	}

	b := &queryBuilder{}
	b.where("user_id = %s", q.UserID)
	order := "time ASC, id ASC"
	if q.Past {
		b.where("time < %s", q.Now.UTC())
		order = "time DESC, id DESC"
	} else {
		b.where("time >= %s", q.Now.UTC())
	}

	if q.After > 0 {
		var cursorTime time.Time
		err := s.pool.QueryRow(ctx,
			`SELECT time FROM bookings WHERE id = $1 AND user_id = $2`, q.After, q.UserID).Scan(&cursorTime)
		if isNotFound(err) {
			return nil, false, domain.ErrInvalidCursor
		}
		if err != nil {
			return nil, false, fmt.Errorf("resolve cursor: %w", err)
		}

		op := ">"
		if q.Past {
			op = "<"
		}
		t, id := b.arg(cursorTime), b.arg(q.After)
		b.conds = append(b.conds, fmt.Sprintf("(time %s %s OR (time = %s AND id %s %s))", op, t, t, op, id))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings` + b.clause() +
		` ORDER BY ` + order + ` LIMIT ` + b.arg(limit+1)

	bookings, err := s.queryBookings(ctx, query, b.args...)
	if err != nil {
		return nil, false, fmt.Errorf("list user bookings: %w", err)
	}

	hasMore := len(bookings) > limit
	if hasMore {
		bookings = bookings[:limit]
	}
	return bookings, hasMore, nil
}

func (s *Store) ListBookings(ctx context.Context, f models.AdminBookingFilter) ([]*models.Booking, int, error) {
	b := &queryBuilder{}
	if f.UserID != "" {
		b.where("user_id = %s", f.UserID)
	}
	if f.Status != "" {
		b.where("status = %s", f.Status)
	}
	if !f.From.IsZero() {
		b.where("time >= %s", f.From.UTC())
	}
	if !f.To.IsZero() {
		b.where("time < %s", f.To.UTC())
	}
	clause := b.clause()

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings`+clause, b.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
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
		` ORDER BY created_at DESC, id DESC LIMIT ` + b.arg(limit) + ` OFFSET ` + b.arg(offset)
	bookings, err := s.queryBookings(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, total, nil
}

func (s *Store) ListBookingsAt(ctx context.Context, t time.Time) ([]*models.Booking, error) {
	bookings, err := s.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE time = $1 ORDER BY id ASC`, t.UTC())
	if err != nil {
		return nil, fmt.Errorf("list slot bookings: %w", err)
	}
	return bookings, nil
}

func (s *Store) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	if err := row.Scan(&b.ID, &b.UserID, &b.Time, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Time = b.Time.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

// queryBuilder numbers positional parameters as conditions are added.
type queryBuilder struct {
	conds []string
	args  []any
}

func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *queryBuilder) where(format string, v any) {
	b.conds = append(b.conds, fmt.Sprintf(format, b.arg(v)))
}

func (b *queryBuilder) clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}
