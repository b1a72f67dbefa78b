package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestNewProvider(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default provider", cfg: Config{}},
		{name: "memory provider", cfg: Config{Provider: "memory", MemorySize: 16}},
		{name: "redis provider", cfg: Config{Provider: "redis", RedisConnectionString: "redis://" + mr.Addr()}},
		{name: "unsupported provider", cfg: Config{Provider: "memcached"}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			provider, err := NewProvider(context.Background(), tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if err := provider.Close(); err != nil {
				t.Fatalf("expected close without error, got %v", err)
			}
		})
	}
}

func TestMemoryProviderExpiry(t *testing.T) {
	t.Parallel()

	provider, err := NewMemoryProvider(0)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	provider.now = func() time.Time { return now }
	ctx := context.Background()

	if err := provider.Set(ctx, ProductKey(1), []byte("lamp"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := provider.Set(ctx, ProductKey(2), []byte("desk"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := provider.Get(ctx, ProductKey(1))
	if err != nil || string(got) != "lamp" {
		t.Fatalf("expected lamp, got %q (%v)", got, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := provider.Get(ctx, ProductKey(1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
	if got, err := provider.Get(ctx, ProductKey(2)); err != nil || string(got) != "desk" {
		t.Fatalf("expected entry without ttl to survive, got %q (%v)", got, err)
	}

	if err := provider.Delete(ctx, ProductKey(2)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := provider.Get(ctx, ProductKey(2)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRedisProvider(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	provider := NewRedisProviderWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = provider.Close() })
	ctx := context.Background()

	if _, err := provider.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := provider.Set(ctx, ProductKey(7), []byte(`{"id":7}`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("cache:product:7") {
		t.Fatalf("expected prefixed key in redis")
	}
	got, err := provider.Get(ctx, ProductKey(7))
	if err != nil || string(got) != `{"id":7}` {
		t.Fatalf("unexpected value %q (%v)", got, err)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := provider.Get(ctx, ProductKey(7)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected key to expire, got %v", err)
	}
}
