package storage

import (
	"context"
	"fmt"

	"github.com/claude/mapty/internal/config"
)

// Open connects the backend named in cfg. For postgres, pending migrations
// from migrationsPath are applied first.
func Open(ctx context.Context, cfg config.StorageConfig, migrationsPath string) (BlobStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemory(), nil
	case config.BackendSQLite:
		s, err := OpenSQLite(cfg.SQLiteDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendPostgres:
		dsn := cfg.Postgres.DSN()
		if err := RunMigrations(dsn, migrationsPath); err != nil {
			return nil, err
		}
		p, err := NewPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.BackendRedis:
		r, err := DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
