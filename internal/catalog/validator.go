package catalog

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/lumashop/lumashop/internal/models"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 250
	maxPrice             = "99999999.99"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the seed and converts it into catalog products.
func (v *Validator) Validate(seed *SeedFile) ([]models.Product, error) {
	if seed == nil || len(seed.Products) == 0 {
		return nil, fmt.Errorf("at least one product is required")
	}

	products := make([]models.Product, 0, len(seed.Products))
	ids := make(map[int64]bool, len(seed.Products))
	for i, entry := range seed.Products {
		product, err := v.validateProduct(entry)
		if err != nil {
			return nil, fmt.Errorf("product %d validation failed: %w", i, err)
		}

		if ids[product.ID] {
			return nil, fmt.Errorf("duplicate product id: %d", product.ID)
		}
		ids[product.ID] = true
		products = append(products, product)
	}

	return products, nil
}

func (v *Validator) validateProduct(entry SeedProduct) (models.Product, error) {
	if entry.ID <= 0 {
		return models.Product{}, fmt.Errorf("product id must be positive")
	}

	name := strings.TrimSpace(entry.Name)
	if name == "" {
		return models.Product{}, fmt.Errorf("product name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return models.Product{}, fmt.Errorf("product name must be at most %d characters", maxNameLength)
	}
	if utf8.RuneCountInString(entry.Description) > maxDescriptionLength {
		return models.Product{}, fmt.Errorf("product description must be at most %d characters", maxDescriptionLength)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(entry.Price))
	if err != nil {
		return models.Product{}, fmt.Errorf("product price %q is not a number", entry.Price)
	}
	if price.IsNegative() {
		return models.Product{}, fmt.Errorf("product price must be zero or positive")
	}
	if !price.Equal(price.Truncate(2)) {
		return models.Product{}, fmt.Errorf("product price must have at most two decimal places")
	}
	if price.GreaterThan(decimal.RequireFromString(maxPrice)) {
		return models.Product{}, fmt.Errorf("product price exceeds %s", maxPrice)
	}

	return models.Product{
		ID:          entry.ID,
		Name:        name,
		Description: strings.TrimSpace(entry.Description),
		Category:    strings.TrimSpace(entry.Category),
		Price:       price,
	}, nil
}
