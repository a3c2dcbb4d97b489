package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"slotbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) GetCalendar(ctx context.Context, year, month int) (*models.Calendar, error) {
	args := m.Called(ctx, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Calendar), args.Error(1)
}

func (m *mockCache) SetCalendar(ctx context.Context, cal *models.Calendar) error {
	return m.Called(ctx, cal).Error(0)
}

func (m *mockCache) InvalidateCalendar(ctx context.Context, year, month int) error {
	return m.Called(ctx, year, month).Error(0)
}

func (m *mockCache) CheckRateLimit(ctx context.Context, userID string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, userID, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverCacheRepository(t *testing.T) {
	primary := new(mockCache)
	fallback := new(mockCache)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverCacheRepository(primary, fallback, &logger)
	now := time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()
	cal := testCalendar()

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("GetCalendar", ctx, 2030, 3).Return(cal, nil).Once()

		got, err := repo.GetCalendar(ctx, 2030, 3)
		assert.NoError(t, err)
		assert.Equal(t, cal, got)
		primary.AssertExpectations(t)
		fallback.AssertNotCalled(t, "GetCalendar", ctx, 2030, 3)
	})

	t.Run("PrimaryFailureFallsBack", func(t *testing.T) {
		primary.On("CheckRateLimit", ctx, "alice", 5, time.Minute).Return(false, errors.New("connection refused")).Once()
		fallback.On("CheckRateLimit", ctx, "alice", 5, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "alice", 5, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.True(t, repo.isDown.Load())
	})

	t.Run("StaysOnFallbackWhileDown", func(t *testing.T) {
		fallback.On("SetCalendar", ctx, cal).Return(nil).Once()

		assert.NoError(t, repo.SetCalendar(ctx, cal))
		primary.AssertNotCalled(t, "SetCalendar", ctx, cal)
	})

	t.Run("InvalidateHitsFallbackWhileDown", func(t *testing.T) {
		fallback.On("InvalidateCalendar", ctx, 2030, 3).Return(nil).Once()

		assert.NoError(t, repo.InvalidateCalendar(ctx, 2030, 3))
		primary.AssertNotCalled(t, "InvalidateCalendar", ctx, 2030, 3)
	})

	t.Run("RecoversAfterInterval", func(t *testing.T) {
		now = now.Add(2 * recoveryInterval)
		primary.On("GetCalendar", ctx, 2030, 4).Return(nil, nil).Once()

		got, err := repo.GetCalendar(ctx, 2030, 4)
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.False(t, repo.isDown.Load())
	})

	t.Run("InvalidateBothWhenUp", func(t *testing.T) {
		fallback.On("InvalidateCalendar", ctx, 2030, 5).Return(nil).Once()
		primary.On("InvalidateCalendar", ctx, 2030, 5).Return(nil).Once()

		assert.NoError(t, repo.InvalidateCalendar(ctx, 2030, 5))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}
