package postgres

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// backoff is an exponential delay schedule for connection attempts.
type backoff struct {
	attempts int
	initial  time.Duration
	max      time.Duration
	factor   float64
}

var defaultBackoff = backoff{attempts: 5, initial: 500 * time.Millisecond, max: 8 * time.Second, factor: 2}

// delay returns the pause before attempt n (1-based), clamped to max.
func (b backoff) delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	if b.initial <= 0 {
		b.initial = time.Second
	}
	if b.factor <= 0 {
		b.factor = 2
	}

	d := time.Duration(float64(b.initial) * math.Pow(b.factor, float64(n-1)))
	if b.max > 0 && d > b.max {
		d = b.max
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// connect opens the pool and pings it, retrying while the server comes up.
func connect(ctx context.Context, poolCfg *pgxpool.Config, b backoff, logger *zerolog.Logger) (*pgxpool.Pool, error) {
	attempts := b.attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for n := 1; n <= attempts; n++ {
		pool, err := dial(ctx, poolCfg)
		if err == nil {
			return pool, nil
		}
		lastErr = err
		if n == attempts {
			break
		}

		wait := b.delay(n)
		logger.Warn().Err(err).Int("attempt", n).Dur("retry_in", wait).Msg("postgres not ready")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("connect postgres after %d attempts: %w", attempts, lastErr)
}

func dial(ctx context.Context, poolCfg *pgxpool.Config) (*pgxpool.Pool, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
