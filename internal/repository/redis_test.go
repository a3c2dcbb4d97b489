package repository

import (
	"context"
	"testing"
	"time"

	"slotbook/internal/config"
	"slotbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCalendar() *models.Calendar {
	return &models.Calendar{
		Year:  2030,
		Month: 3,
		Days: []models.CalendarDay{
			{Date: "2030-03-01", Full: true},
			{Date: "2030-03-02"},
		},
	}
}

func TestRedisCacheRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer Close(client)

	repo := NewRedisCacheRepository(client, time.Minute)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})

	t.Run("SetAndGetCalendar", func(t *testing.T) {
		require.NoError(t, repo.SetCalendar(ctx, testCalendar()))

		got, err := repo.GetCalendar(ctx, 2030, 3)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, testCalendar(), got)
		assert.Equal(t, time.Minute, s.TTL("calendar:2030-03"))
	})

	t.Run("Miss", func(t *testing.T) {
		got, err := repo.GetCalendar(ctx, 2030, 4)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Expiry", func(t *testing.T) {
		require.NoError(t, repo.SetCalendar(ctx, &models.Calendar{Year: 2031, Month: 1}))
		s.FastForward(2 * time.Minute)
		got, err := repo.GetCalendar(ctx, 2031, 1)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Invalidate", func(t *testing.T) {
		require.NoError(t, repo.SetCalendar(ctx, testCalendar()))
		require.NoError(t, repo.InvalidateCalendar(ctx, 2030, 3))

		got, err := repo.GetCalendar(ctx, 2030, 3)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("CorruptEntry", func(t *testing.T) {
		require.NoError(t, s.Set("calendar:2032-01", "not json"))
		_, err := repo.GetCalendar(ctx, 2032, 1)
		assert.Error(t, err)
	})

	t.Run("RateLimit", func(t *testing.T) {
		limit := 2
		window := time.Second

		allowed, err := repo.CheckRateLimit(ctx, "alice", limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, "alice", limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, "alice", limit, window)
		require.NoError(t, err)
		assert.False(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, "bob", limit, window)
		require.NoError(t, err)
		assert.True(t, allowed, "limits are per user")

		s.FastForward(2 * time.Second)
		allowed, err = repo.CheckRateLimit(ctx, "alice", limit, window)
		require.NoError(t, err)
		assert.True(t, allowed, "window expired")
	})
}

func TestRedisCacheRepository_ServerDown(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer Close(client)
	s.Close()

	repo := NewRedisCacheRepository(client, time.Minute)
	_, err = repo.GetCalendar(context.Background(), 2030, 3)
	assert.Error(t, err)
	assert.Error(t, Ping(context.Background(), client))
}

func TestRedisCacheRepository_NilClient(t *testing.T) {
	repo := NewRedisCacheRepository(nil, time.Minute)
	ctx := context.Background()

	_, err := repo.GetCalendar(ctx, 2030, 3)
	assert.Error(t, err)
	assert.Error(t, repo.SetCalendar(ctx, testCalendar()))
	assert.Error(t, repo.InvalidateCalendar(ctx, 2030, 3))
	_, err = repo.CheckRateLimit(ctx, "alice", 1, time.Second)
	assert.Error(t, err)
}
