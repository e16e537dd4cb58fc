package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fuelflux/core/auth"
	"github.com/fuelflux/core/config"
	"github.com/fuelflux/core/storage"
	bboltstorage "github.com/fuelflux/core/storage/bbolt"
	"github.com/fuelflux/core/storage/memory"
	"github.com/fuelflux/core/storage/postgres"
)

// catalogFile is the BBolt database name inside the data directory.
const catalogFile = "fuelflux.db"

// openRepository opens the catalog backend selected by cfg. The returned
// func releases it.
func openRepository(ctx context.Context, cfg *config.Config) (storage.Repository, func(), error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return memory.NewRepository(), func() {}, nil
	case config.StorageBBolt:
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		repo, err := bboltstorage.NewRepositoryFromFile(filepath.Join(cfg.DataDir, catalogFile), nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open catalog storage: %w", err)
		}
		return repo, func() { repo.Close() }, nil
	case config.StoragePostgres:
		repo, err := postgres.NewRepositoryFromDSN(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres storage: %w", err)
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

// openSessionStore opens the device session backend selected by cfg.
func openSessionStore(ctx context.Context, cfg *config.Config) (auth.SessionStore, func(), error) {
	switch cfg.SessionStore {
	case config.SessionStoreMemory:
		return auth.NewMemorySessionStore(), func() {}, nil
	case config.SessionStoreRedis:
		client, err := auth.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return auth.NewRedisSessionStore(client, ""), func() { client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}
