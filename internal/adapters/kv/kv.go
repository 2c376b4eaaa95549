// Package kv holds the key-value backends the note list can live in.
package kv

import (
	"context"
	"fmt"

	"github.com/notesapp/core/internal/infrastructure/config"
	"github.com/notesapp/core/internal/infrastructure/database"
	"github.com/notesapp/core/internal/ports"
)

var (
	_ ports.KVStore = (*MemoryStore)(nil)
	_ ports.KVStore = (*FileStore)(nil)
	_ ports.KVStore = (*SQLStore)(nil)
	_ ports.KVStore = (*RedisStore)(nil)
)

// Open builds the backend named by cfg.Storage.Driver. SQL backends are migrated before use.
func Open(ctx context.Context, cfg *config.Config) (ports.KVStore, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverFile:
		return NewFileStore(cfg.Storage.Path)
	case config.DriverSQLite, config.DriverPostgres:
		db, err := database.NewConnection(cfg)
		if err != nil {
			return nil, err
		}
		if err := db.MigrateUp(); err != nil {
			db.Close()
			return nil, err
		}
		return NewSQLStore(db), nil
	case config.DriverRedis:
		return NewRedisStore(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
