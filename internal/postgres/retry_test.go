package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelay(t *testing.T) {
	b := backoff{initial: time.Second, factor: 2, max: 5 * time.Second}
	assert.Equal(t, time.Second, b.delay(1))
	assert.Equal(t, 2*time.Second, b.delay(2))
	assert.Equal(t, 5*time.Second, b.delay(5))
	assert.Equal(t, time.Second, b.delay(0))

	assert.Equal(t, time.Second, backoff{}.delay(1))
}

func TestConnect_GivesUp(t *testing.T) {
	// nothing listens on port 1
	poolCfg, err := pgxpool.ParseConfig("postgres://u:p@127.0.0.1:1/db?sslmode=disable&connect_timeout=1")
	require.NoError(t, err)

	logger := zerolog.Nop()
	_, err = connect(context.Background(), poolCfg, backoff{attempts: 2, initial: 10 * time.Millisecond}, &logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestConnect_ContextCancelled(t *testing.T) {
	poolCfg, err := pgxpool.ParseConfig("postgres://u:p@127.0.0.1:1/db?sslmode=disable&connect_timeout=1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	logger := zerolog.Nop()
	_, err = connect(ctx, poolCfg, backoff{attempts: 3, initial: time.Hour}, &logger)
	assert.Error(t, err)
}
