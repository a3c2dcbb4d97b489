package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"slotbook/internal/config"
	"slotbook/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisCacheRepository keeps month summaries and rate-limit counters in Redis,
// so that several API processes share them.
type RedisCacheRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisCacheRepository(client *redis.Client, ttl time.Duration) *RedisCacheRepository {
	return &RedisCacheRepository{
		client: client,
		ttl:    ttl,
	}
}

func calendarKey(year, month int) string {
	return fmt.Sprintf("calendar:%04d-%02d", year, month)
}

func rateLimitKey(userID string) string {
	return "rate_limit:" + userID
}

func (r *RedisCacheRepository) GetCalendar(ctx context.Context, year, month int) (*models.Calendar, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, calendarKey(year, month)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar from redis: %w", err)
	}

	var cal models.Calendar
	if err := json.Unmarshal(val, &cal); err != nil {
		return nil, fmt.Errorf("failed to unmarshal calendar: %w", err)
	}
	return &cal, nil
}

func (r *RedisCacheRepository) SetCalendar(ctx context.Context, cal *models.Calendar) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(cal)
	if err != nil {
		return fmt.Errorf("failed to marshal calendar: %w", err)
	}
	if err := r.client.Set(ctx, calendarKey(cal.Year, cal.Month), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set calendar in redis: %w", err)
	}
	return nil
}

func (r *RedisCacheRepository) InvalidateCalendar(ctx context.Context, year, month int) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, calendarKey(year, month)).Err(); err != nil {
		return fmt.Errorf("failed to delete calendar from redis: %w", err)
	}
	return nil
}

// CheckRateLimit counts a request in a fixed window and reports whether it is within limit.
func (r *RedisCacheRepository) CheckRateLimit(ctx context.Context, userID string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	key := rateLimitKey(userID)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
