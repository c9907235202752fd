package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrStoreClosed   = errors.New("store is closed")
)

// OpenResourceStore opens the persistence collaborator named by driver:
// memory, sqlite, postgres, redis or mongo.
func OpenResourceStore(ctx context.Context, driver, dsn string) (ResourceStore, error) {
	var store ResourceStore
	var err error

	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite", "sqlite3":
		if dsn == "" {
			dsn = ":memory:"
		}
		var backend *SQLiteBackend
		if backend, err = NewSQLiteBackend(dsn); err == nil {
			store = backend
		}
	case "postgres", "postgresql":
		var pg *PostgresStore
		if pg, err = NewPostgresStore(ctx, dsn); err == nil {
			store = pg
		}
	case "redis":
		var rs *RedisStore
		if rs, err = NewRedisStore(dsn); err == nil {
			store = rs
		}
	case "mongo", "mongodb":
		var ms *MongoStore
		if ms, err = NewMongoStore(ctx, dsn); err == nil {
			store = ms
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	return store, nil
}
