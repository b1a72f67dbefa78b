// Package cache provides short-lived key/value caching for catalog lookups.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrNotFound = errors.New("key not found")

// Provider stores opaque values under string keys with a TTL. A TTL of zero
// keeps the value until it is evicted or deleted.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
	MemorySize            int
}

func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider(cfg.MemorySize)
	case "redis":
		return NewRedisProvider(ctx, cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// ProductKey is the cache key of a catalog product.
func ProductKey(productID int64) string {
	return "product:" + strconv.FormatInt(productID, 10)
}
