package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"medcase/internal/config"
	"medcase/internal/repository"
)

// OpenStore construye el Store segun STORE_DRIVER. El cleanup devuelto cierra la conexion
// subyacente y siempre es no nil.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, func(), error) {
	noop := func() {}

	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return repository.Store{}, noop, fmt.Errorf("db connect: %w", err)
		}
		if err := Ping(ctx, pool); err != nil {
			pool.Close()
			return repository.Store{}, noop, fmt.Errorf("db ping: %w", err)
		}
		if err := EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return repository.Store{}, noop, fmt.Errorf("db schema: %w", err)
		}
		logger.Info("using postgres store")
		return repository.NewPgStore(pool), pool.Close, nil

	case config.StoreSQLite:
		gdb, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return repository.Store{}, noop, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return repository.Store{}, noop, fmt.Errorf("sqlite handle: %w", err)
		}
		// sqlite no tolera escritores concurrentes; la respuesta diferida escribe en paralelo.
		sqlDB.SetMaxOpenConns(1)
		if err := repository.AutoMigrateGorm(gdb); err != nil {
			_ = sqlDB.Close()
			return repository.Store{}, noop, fmt.Errorf("sqlite migrate: %w", err)
		}
		logger.Info("using sqlite store", zap.String("path", cfg.SQLitePath))
		return repository.NewGormStore(gdb), func() { _ = sqlDB.Close() }, nil

	default:
		logger.Info("using in-memory store")
		return repository.NewMemoryStore(), noop, nil
	}
}
