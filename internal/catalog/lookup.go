package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lumashop/lumashop/internal/cache"
	"github.com/lumashop/lumashop/internal/logging"
	"github.com/lumashop/lumashop/internal/models"
)

// Source is the authoritative product store.
type Source interface {
	FindByID(ctx context.Context, id int64) (*models.Product, error)
	FindManyByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
}

// CachedLookup serves products from the cache and falls back to the source,
// collapsing concurrent misses for the same product. Cache failures are
// logged and never fail a lookup.
type CachedLookup struct {
	source Source
	cache  cache.Provider
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

type freshReadsKey struct{}

// WithFreshReads makes lookups on the returned context bypass cached copies
// and read the source. What they read still refreshes the cache.
func WithFreshReads(ctx context.Context) context.Context {
	return context.WithValue(ctx, freshReadsKey{}, true)
}

func freshReads(ctx context.Context) bool {
	fresh, _ := ctx.Value(freshReadsKey{}).(bool)
	return fresh
}

func NewCachedLookup(source Source, cacheProvider cache.Provider, ttl time.Duration, logger *slog.Logger) *CachedLookup {
	return &CachedLookup{
		source: source,
		cache:  cacheProvider,
		ttl:    ttl,
		logger: logger,
	}
}

func (l *CachedLookup) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, l.logger).With("component", "catalog_lookup")
}

// FindByID returns nil without error when the product does not exist.
func (l *CachedLookup) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	if product, ok := l.cached(ctx, id); ok {
		return product, nil
	}

	v, err, _ := l.group.Do(strconv.FormatInt(id, 10), func() (any, error) {
		product, err := l.source.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if product != nil {
			l.store(ctx, *product)
		}
		return product, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find product %d: %w", id, err)
	}

	product, _ := v.(*models.Product)
	if product == nil {
		return nil, nil
	}
	copied := *product
	return &copied, nil
}

// FindManyByIDs returns the existing products among ids ordered by id.
func (l *CachedLookup) FindManyByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	products := make([]models.Product, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	missing := make([]int64, 0, len(ids))

	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if product, ok := l.cached(ctx, id); ok {
			products = append(products, *product)
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		loaded, err := l.source.FindManyByIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("failed to find products: %w", err)
		}
		for _, product := range loaded {
			l.store(ctx, product)
			products = append(products, product)
		}
	}

	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// Invalidate evicts the cached copies of the given products.
func (l *CachedLookup) Invalidate(ctx context.Context, ids ...int64) error {
	if l.cache == nil || len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cache.ProductKey(id)
	}
	return l.cache.Delete(ctx, keys...)
}

func (l *CachedLookup) cached(ctx context.Context, id int64) (*models.Product, bool) {
	if l.cache == nil || l.ttl <= 0 || freshReads(ctx) {
		return nil, false
	}

	raw, err := l.cache.Get(ctx, cache.ProductKey(id))
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			l.loggerFromContext(ctx).Warn("catalog cache read failed", "error", err, "product_id", id)
		}
		return nil, false
	}

	var product models.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		l.loggerFromContext(ctx).Warn("discarding unreadable cached product", "error", err, "product_id", id)
		return nil, false
	}
	return &product, true
}

func (l *CachedLookup) store(ctx context.Context, product models.Product) {
	if l.cache == nil || l.ttl <= 0 {
		return
	}

	raw, err := json.Marshal(product)
	if err != nil {
		l.loggerFromContext(ctx).Warn("failed to encode product for cache", "error", err, "product_id", product.ID)
		return
	}
	if err := l.cache.Set(ctx, cache.ProductKey(product.ID), raw, l.ttl); err != nil {
		l.loggerFromContext(ctx).Warn("catalog cache write failed", "error", err, "product_id", product.ID)
	}
}
