package postgres

import (
	"context"
	"fmt"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/models"

	"github.com/jackc/pgx/v5"
)

const slotColumns = `id, time, openings, created_at, updated_at`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) ClaimOpening(ctx context.Context, t time.Time, capacity int) (*models.TimeSlot, error) {
	return s.claimOpening(ctx, s.pool, t, capacity)
}

// claimOpening materializes the slot with capacity-1 openings or decrements it.
// Concurrent claimants serialize on the row lock and re-check openings > 0.
func (s *Store) claimOpening(ctx context.Context, q querier, t time.Time, capacity int) (*models.TimeSlot, error) {
	if capacity <= 0 {
		return nil, domain.ErrSlotFull
	}

	query := `
		INSERT INTO time_slots (time, openings, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (time) DO UPDATE
			SET openings = time_slots.openings - 1,
			    updated_at = EXCLUDED.updated_at
			WHERE time_slots.openings > 0
		RETURNING ` + slotColumns

	slot, err := scanSlot(q.QueryRow(ctx, query, t.UTC(), capacity-1, s.now().UTC()))
	if isNotFound(err) {
		return nil, domain.ErrSlotFull
	}
	if err != nil {
		return nil, fmt.Errorf("claim opening: %w", err)
	}
	return slot, nil
}

func (s *Store) ReleaseOpening(ctx context.Context, t time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE time_slots SET openings = openings + 1, updated_at = $1 WHERE time = $2`,
		s.now().UTC(), t.UTC())
	if err != nil {
		return fmt.Errorf("release opening: %w", err)
	}
	return nil
}

func (s *Store) ReadOpenings(ctx context.Context, t time.Time, capacity int) (int, error) {
	var openings int
	err := s.pool.QueryRow(ctx, `SELECT openings FROM time_slots WHERE time = $1`, t.UTC()).Scan(&openings)
	if isNotFound(err) {
		return capacity, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read openings: %w", err)
	}
	return openings, nil
}

func (s *Store) ReadOpeningsRange(ctx context.Context, from, to time.Time) (map[int64]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT time, openings FROM time_slots WHERE time >= $1 AND time < $2`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("read openings range: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]int)
	for rows.Next() {
		var (
			slotTime time.Time
			openings int
		)
		if err := rows.Scan(&slotTime, &openings); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		result[slotTime.Unix()] = openings
	}
	return result, rows.Err()
}

func (s *Store) GetTimeSlot(ctx context.Context, t time.Time) (*models.TimeSlot, error) {
	slot, err := scanSlot(s.pool.QueryRow(ctx, `SELECT `+slotColumns+` FROM time_slots WHERE time = $1`, t.UTC()))
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get time slot: %w", err)
	}
	return slot, nil
}

func (s *Store) SetOpenings(ctx context.Context, t time.Time, openings int) (*models.TimeSlot, error) {
	if openings < 0 {
		return nil, domain.ErrInvalidOpenings
	}

	query := `
		INSERT INTO time_slots (time, openings, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (time) DO UPDATE
			SET openings = EXCLUDED.openings,
			    updated_at = EXCLUDED.updated_at
		RETURNING ` + slotColumns

	slot, err := scanSlot(s.pool.QueryRow(ctx, query, t.UTC(), openings, s.now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("set openings: %w", err)
	}
	return slot, nil
}

func scanSlot(row pgx.Row) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	if err := row.Scan(&slot.ID, &slot.Time, &slot.Openings, &slot.CreatedAt, &slot.UpdatedAt); err != nil {
		return nil, err
	}
	slot.Time = slot.Time.UTC()
	slot.CreatedAt = slot.CreatedAt.UTC()
	slot.UpdatedAt = slot.UpdatedAt.UTC()
	return &slot, nil
}
