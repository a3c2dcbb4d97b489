package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotbook/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	defaultMaxConns = 10
	connectTimeout  = 5 * time.Second

	uniqueViolation = "23505"
)

// Store is the PostgreSQL implementation of domain.Repository.
type Store struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
	now    func() time.Time
}

// New connects using the configured credentials and applies pending migrations.
func New(ctx context.Context, cfg config.PostgresConfig, logger *zerolog.Logger) (*Store, error) {
	return Open(ctx, cfg.DSN(), cfg.MaxConnections, cfg.MigrationTable, logger)
}

// Open connects to dsn and migrates the schema. migrationTable may be empty.
func Open(ctx context.Context, dsn string, maxConns int, migrationTable string, logger *zerolog.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	poolCfg.MaxConns = int32(maxConns)
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := connect(ctx, poolCfg, defaultBackoff, logger)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, pool, migrationTable, logger); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info().Int("max_conns", maxConns).Msg("connected to postgres")
	return &Store{pool: pool, logger: logger, now: time.Now}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Pool exposes the connection pool, for tests and migrations.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
