package cmd

import (
	"context"
	"fmt"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/config"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/logging"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/service"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/store"
)

// openStore connects the configured backend and wraps it in a
// ReferenceStore. The returned close func releases the backend.
func openStore(ctx context.Context, cfg config.Config) (*store.ReferenceStore, func() error, error) {
	opts := []store.Option{store.WithKey(cfg.StorageKey)}

	var backend store.Backend
	switch cfg.StorageDriver {
	case config.DriverFile:
		b, err := store.NewFileBackend(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		backend = b

	case config.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for the postgres storage driver")
		}
		db, err := store.NewDB(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		b := store.NewPostgresBackend(db)
		if err := b.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		backend = b

	case config.DriverRedis:
		if cfg.RedisURL == "" {
			return nil, nil, fmt.Errorf("REDIS_URL is required for the redis storage driver")
		}
		b, err := store.NewRedisBackend(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		backend = b
		opts = append(opts, store.WithLocker(store.NewRedisLocker(b.Client(), cfg.StorageKey, cfg.WriteLockTTL)))

	case config.DriverMemory:
		backend = store.NewMemoryBackend()

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	logging.New("store").WithField("driver", cfg.StorageDriver).Info("Storage ready")
	return store.NewReferenceStore(backend, opts...), backend.Close, nil
}

// newAuditClient returns nil when no API key is configured
func newAuditClient(ctx context.Context, cfg config.Config) (*service.AuditClient, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, nil
	}

	model, err := service.NewGeminiModel(ctx, service.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	})
	if err != nil {
		return nil, err
	}

	return service.NewAuditClient(model,
		service.WithAuditTimeout(cfg.AuditTimeout),
		service.WithAuditAttempts(cfg.AuditMaxAttempts),
		service.WithImageFetcher(service.NewImageFetcher(cfg.ImageFetchTimeout, cfg.AuditMaxAttempts)),
	), nil
}
