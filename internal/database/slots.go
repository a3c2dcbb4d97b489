package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/models"
)

const slotColumns = `id, time, openings, created_at, updated_at`

// ClaimOpening takes one opening of the slot at t, materializing the slot with
// capacity-1 openings on first use. It returns domain.ErrSlotFull when no opening is left.
func (db *DB) ClaimOpening(ctx context.Context, t time.Time, capacity int) (*models.TimeSlot, error) {
	return db.claimOpening(ctx, db.DB, t, capacity)
}

// claimOpening is a single upsert: the insert and the guarded decrement cannot
// interleave with another claimant, and a full slot returns no row.
func (db *DB) claimOpening(ctx context.Context, q querier, t time.Time, capacity int) (*models.TimeSlot, error) {
	if capacity <= 0 {
		return nil, domain.ErrSlotFull
	}
	now := formatTime(db.now())

	query := `
        INSERT INTO time_slots (time, openings, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(time) DO UPDATE
            SET openings = time_slots.openings - 1,
                updated_at = excluded.updated_at
            WHERE time_slots.openings > 0
        RETURNING ` + slotColumns

	slot, err := scanSlot(q.QueryRowContext(ctx, query, formatTime(t), capacity-1, now, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSlotFull
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim opening: %w", err)
	}
	return slot, nil
}

// ReleaseOpening returns one opening to the slot at t. A slot that was never
// materialized is left alone.
func (db *DB) ReleaseOpening(ctx context.Context, t time.Time) error {
	query := `UPDATE time_slots SET openings = openings + 1, updated_at = ? WHERE time = ?`
	if _, err := db.ExecContext(ctx, query, formatTime(db.now()), formatTime(t)); err != nil {
		return fmt.Errorf("failed to release opening: %w", err)
	}
	return nil
}

// ReadOpenings returns the openings of the slot at t, or capacity when it has no record.
func (db *DB) ReadOpenings(ctx context.Context, t time.Time, capacity int) (int, error) {
	var openings int
	err := db.QueryRowContext(ctx, `SELECT openings FROM time_slots WHERE time = ?`, formatTime(t)).Scan(&openings)
	if errors.Is(err, sql.ErrNoRows) {
		return capacity, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read openings: %w", err)
	}
	return openings, nil
}

// ReadOpeningsRange returns the materialized slots in [from, to) keyed by unix seconds.
func (db *DB) ReadOpeningsRange(ctx context.Context, from, to time.Time) (map[int64]int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT time, openings FROM time_slots WHERE time >= ? AND time < ?`,
		formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("failed to read openings range: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]int)
	for rows.Next() {
		var (
			raw      string
			openings int
		)
		if err := rows.Scan(&raw, &openings); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		t, err := parseTime(raw)
		if err != nil {
			return nil, err
		}
		result[t.Unix()] = openings
	}
	return result, rows.Err()
}

// GetTimeSlot returns the slot record at t, or nil when it was never materialized.
func (db *DB) GetTimeSlot(ctx context.Context, t time.Time) (*models.TimeSlot, error) {
	slot, err := scanSlot(db.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM time_slots WHERE time = ?`, formatTime(t)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get time slot: %w", err)
	}
	return slot, nil
}

// SetOpenings overwrites the openings of the slot at t, creating its record if needed.
// The value is not reconciled with existing bookings.
func (db *DB) SetOpenings(ctx context.Context, t time.Time, openings int) (*models.TimeSlot, error) {
	if openings < 0 {
		return nil, domain.ErrInvalidOpenings
	}
	now := formatTime(db.now())

	query := `
        INSERT INTO time_slots (time, openings, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(time) DO UPDATE
            SET openings = excluded.openings,
                updated_at = excluded.updated_at
        RETURNING ` + slotColumns

	slot, err := scanSlot(db.QueryRowContext(ctx, query, formatTime(t), openings, now, now))
	if err != nil {
		return nil, fmt.Errorf("failed to set openings: %w", err)
	}
	return slot, nil
}

func scanSlot(row rowScanner) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	var slotTime, created, updated string
	if err := row.Scan(&slot.ID, &slotTime, &slot.Openings, &created, &updated); err != nil {
		return nil, err
	}

	var err error
	if slot.Time, err = parseTime(slotTime); err != nil {
		return nil, err
	}
	if slot.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if slot.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &slot, nil
}
