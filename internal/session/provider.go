package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Store backends selectable through SESSION_STORE_PROVIDER.
const (
	ProviderMemory = "memory"
	ProviderRedis  = "redis"
)

// Config selects the Store that holds visitor sessions.
type Config struct {
	Provider              string
	RedisConnectionString string
	Logger                *slog.Logger
}

// NewStore builds the configured Store. Memory is used when no provider is
// named; it does not survive restarts and is not shared between replicas.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch provider := strings.ToLower(strings.TrimSpace(cfg.Provider)); provider {
	case "", ProviderMemory:
		return NewMemoryStore(), nil
	case ProviderRedis:
		store, err := NewRedisStore(ctx, cfg.RedisConnectionString, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis session store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("SESSION_STORE_PROVIDER must be %q or %q, got %q", ProviderMemory, ProviderRedis, provider)
	}
}
