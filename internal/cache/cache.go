// Package cache implements the key-value store used to persist tokens and goals.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
)

var (
	// ErrNotFound is returned by GetJSON when the key holds no value.
	ErrNotFound = errors.New("cache: key not found")
	// ErrCorrupt is returned by GetJSON when the stored value cannot be decoded.
	ErrCorrupt = errors.New("cache: corrupt value")
)

// Cache is a simple string key-value store. Get returns an empty string and
// a nil error for keys that are not set.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Del(ctx context.Context, key string) error
	GetJSON(ctx context.Context, key string, value any) error
	SetJSON(ctx context.Context, key string, value any) error
	Close() error
}

// New returns a Cache for the given store URL. redis:// and rediss:// URLs
// use Redis, postgres:// URLs use PostgreSQL and anything else is treated as
// a SQLite database path.
func New(ctx context.Context, storeURL string) (Cache, error) {
	switch {
	case strings.HasPrefix(storeURL, "redis://"), strings.HasPrefix(storeURL, "rediss://"):
		return NewRedisCache(ctx, storeURL)
	case strings.HasPrefix(storeURL, "postgres://"), strings.HasPrefix(storeURL, "postgresql://"):
		return NewSQLCache(ctx, postgres.Open(storeURL))
	case storeURL == "":
		return nil, errors.New("no store URL configured")
	default:
		return NewSQLCache(ctx, sqlite.Open(storeURL))
	}
}

func getJSON(ctx context.Context, c Cache, key string, value any) error {
	s, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if s == "" {
		return ErrNotFound
	}

	if err := json.Unmarshal([]byte(s), value); err != nil {
		return fmt.Errorf("%w for %q: %v", ErrCorrupt, key, err)
	}
	return nil
}

func setJSON(ctx context.Context, c Cache, key string, value any) error {
	t, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling JSON for cache key %q: %w", key, err)
	}
	return c.Set(ctx, key, string(t))
}
