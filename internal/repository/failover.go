package repository

import (
	"context"
	"sync/atomic"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverCacheRepository serves from primary until it fails, then from fallback,
// probing primary again once per recoveryInterval.
type FailoverCacheRepository struct {
	primary   domain.CacheRepository
	fallback  domain.CacheRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64 // unix nanos
	now       func() time.Time
}

func NewFailoverCacheRepository(primary, fallback domain.CacheRepository, logger *zerolog.Logger) *FailoverCacheRepository {
	return &FailoverCacheRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverCacheRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	last := time.Unix(0, r.lastCheck.Load())
	return r.now().Sub(last) > recoveryInterval
}

func (r *FailoverCacheRepository) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary cache repository failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverCacheRepository) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary cache repository recovered")
	}
}

func (r *FailoverCacheRepository) GetCalendar(ctx context.Context, year, month int) (*models.Calendar, error) {
	if r.usePrimary() {
		cal, err := r.primary.GetCalendar(ctx, year, month)
		if err == nil {
			r.markUp()
			return cal, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetCalendar(ctx, year, month)
}

func (r *FailoverCacheRepository) SetCalendar(ctx context.Context, cal *models.Calendar) error {
	if r.usePrimary() {
		err := r.primary.SetCalendar(ctx, cal)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetCalendar(ctx, cal)
}

// InvalidateCalendar drops the entry from both stores so that no stale copy
// survives a switch between them.
func (r *FailoverCacheRepository) InvalidateCalendar(ctx context.Context, year, month int) error {
	fallbackErr := r.fallback.InvalidateCalendar(ctx, year, month)
	if r.usePrimary() {
		err := r.primary.InvalidateCalendar(ctx, year, month)
		if err == nil {
			r.markUp()
			return fallbackErr
		}
		r.markDown(err)
	}
	return fallbackErr
}

func (r *FailoverCacheRepository) CheckRateLimit(ctx context.Context, userID string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}
