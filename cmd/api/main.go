package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slotbook/internal/api"
	"slotbook/internal/config"
	"slotbook/internal/database"
	"slotbook/internal/domain"
	"slotbook/internal/events"
	"slotbook/internal/logging"
	"slotbook/internal/metrics"
	"slotbook/internal/postgres"
	"slotbook/internal/repository"
	"slotbook/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	grid, err := cfg.Grid()
	if err != nil {
		logger.Error().Err(err).Msg("build slot grid")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := initStore(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer (func() { _ = store.Close() })()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}
	cache := initCache(cfg, redisClient, &logger)

	bus := events.NewEventBus(logging.Component(&logger, "events"))
	service.RegisterCacheInvalidation(bus, cache, grid.Location(), logging.Component(&logger, "cache"))
	service.RegisterAuditLog(bus, logging.Component(&logger, "audit"))

	svcLogger := logging.Component(&logger, "service")
	deps := api.Deps{
		Calendar: service.NewCalendarService(store, cache, grid, svcLogger),
		Bookings: service.NewBookingService(store, grid, bus, svcLogger),
		History:  service.NewHistoryService(store),
		Admin:    service.NewAdminService(store, grid, bus, svcLogger),
		Cache:    cache,
		Store:    store,
	}
	httpServer := api.NewHTTPServer(cfg.API, cfg.Booking, grid.Location(), deps, logging.Component(&logger, "http"))

	startMetrics(ctx, cfg, &logger)
	startBackups(ctx, cfg, store, &logger)

	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.Repository, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		store, err := postgres.New(ctx, cfg.Database.Postgres, logging.Component(logger, "postgres"))
		if err != nil {
			logger.Error().Err(err).Str("host", cfg.Database.Postgres.Host).Msg("init postgres")
			return nil, err
		}
		return store, nil
	default:
		db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "sqlite"))
		if err != nil {
			logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
			return nil, err
		}
		return db, nil
	}
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, client); err != nil {
		// Still wired: the failover cache keeps probing it.
		logger.Warn().Err(err).Msg("redis connection failed, starting on in-memory cache")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}
	return client
}

func initCache(cfg *config.Config, client *redis.Client, logger *zerolog.Logger) domain.CacheRepository {
	ttl := time.Duration(cfg.Booking.CalendarCacheTTL) * time.Second
	memory := repository.NewMemoryCacheRepository(ttl)
	if client == nil {
		return memory
	}
	return repository.NewFailoverCacheRepository(
		repository.NewRedisCacheRepository(client, ttl),
		memory,
		logging.Component(logger, "cache"),
	)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startBackups(ctx context.Context, cfg *config.Config, store domain.Repository, logger *zerolog.Logger) {
	db, ok := store.(*database.DB)
	if !ok || !cfg.Backup.Enabled {
		return
	}
	go database.NewBackupService(db, cfg.Backup, logger).Start(ctx)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Str("driver", cfg.Database.Driver).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
