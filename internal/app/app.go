// Package app wires the catalog, order store, journal, coordinator and the
// configured persistence driver into one runnable unit.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"magazyn/internal/catalog"
	"magazyn/internal/coordinator"
	"magazyn/internal/journal"
	"magazyn/internal/orderstore"
	"magazyn/internal/storage"
	"magazyn/internal/storage/filestore"
	"magazyn/internal/storage/postgres"
	"magazyn/internal/storage/redisstore"
	"magazyn/pkg/applog"
	"magazyn/pkg/config"
)

type App struct {
	Coordinator *coordinator.Coordinator

	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	store, err := a.buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store = storage.WithRetry(store, cfg.Storage.RetryAttempts, cfg.Storage.RetryWait, logger)

	a.Coordinator = coordinator.New(
		catalog.New(logger),
		orderstore.New(logger),
		store,
		journal.New(),
		logger,
	)

	if err := a.Coordinator.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load state: %w", err)
	}
	return a, nil
}

// Run blocks until ctx is cancelled, then flushes a final snapshot.
func (a *App) Run(ctx context.Context) error {
	applog.Info(ctx, a.logger, "magazyn running",
		zap.Int("products", len(a.Coordinator.Products())),
	)

	<-ctx.Done()

	flushCtx := context.WithoutCancel(ctx)
	if err := a.Coordinator.Flush(flushCtx); err != nil {
		return fmt.Errorf("final flush: %w", err)
	}
	applog.Info(flushCtx, a.logger, "state flushed, shutting down")
	return nil
}

func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
}

func (a *App) buildStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "file":
		return filestore.New(cfg.Storage.DataDir, a.logger)
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		return postgres.NewStore(pool, a.logger), nil
	case "redis":
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
		return redisstore.New(a.redis), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
