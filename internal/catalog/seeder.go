package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lumashop/lumashop/internal/logging"
	"github.com/lumashop/lumashop/internal/models"
)

// ProductWriter stores catalog products.
type ProductWriter interface {
	Upsert(ctx context.Context, product models.Product) error
}

// Invalidator evicts cached copies of products. CachedLookup implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, ids ...int64) error
}

// Seeder loads a YAML seed file into the product table and evicts the
// cached copies of every product it touched.
type Seeder struct {
	store     ProductWriter
	cache     Invalidator
	parser    *Parser
	validator *Validator
	logger    *slog.Logger
}

func NewSeeder(store ProductWriter, cached Invalidator, logger *slog.Logger) *Seeder {
	return &Seeder{
		store:     store,
		cache:     cached,
		parser:    NewParser(),
		validator: NewValidator(),
		logger:    logger,
	}
}

func (s *Seeder) SeedFile(ctx context.Context, path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read catalog seed: %w", err)
	}
	return s.Seed(ctx, content)
}

// Seed upserts every product in content and returns how many were written.
func (s *Seeder) Seed(ctx context.Context, content []byte) (int, error) {
	logger := logging.FromContext(ctx, s.logger).With("component", "catalog_seeder")

	seed, err := s.parser.Parse(content)
	if err != nil {
		return 0, err
	}
	products, err := s.validator.Validate(seed)
	if err != nil {
		return 0, fmt.Errorf("invalid catalog seed: %w", err)
	}

	ids := make([]int64, 0, len(products))
	for _, product := range products {
		if err := s.store.Upsert(ctx, product); err != nil {
			return 0, err
		}
		ids = append(ids, product.ID)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, ids...); err != nil {
			logger.Warn("failed to evict seeded products from cache", "error", err)
		}
	}

	logger.Info("catalog seeded", "products", len(products))
	return len(products), nil
}
