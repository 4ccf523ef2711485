// Package runstore persists recommendation run records for later inspection.
package runstore

import (
	"context"
	"fmt"

	"github.com/pillwise/backend/config"
	"github.com/pillwise/backend/internal/domain"
)

// Store is a run repository that owns resources released on shutdown
type Store interface {
	domain.RunRepository
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

// New builds the store selected by cfg.Type
func New(ctx context.Context, cfg config.RunStoreConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(cfg.TTL, 0), nil
	case "redis":
		return NewRedisStore(ctx, cfg.RedisURL, cfg.TTL)
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.SQLitePath, cfg.TTL, 0)
	default:
		return nil, fmt.Errorf("unsupported run store type %q", cfg.Type)
	}
}
