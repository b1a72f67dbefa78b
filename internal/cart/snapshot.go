package cart

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/lumashop/lumashop/internal/models"
)

// Snapshot is a point-in-time view of the cart used for display and for
// turning the cart into an order.
type Snapshot struct {
	Products   []models.Product `json:"products"`
	Quantities Entries          `json:"quantities"`
	Total      decimal.Decimal  `json:"total"`
}

// Line pairs a resolved product with its cart quantity.
type Line struct {
	Product  models.Product
	Quantity int
}

// Lines returns one line per resolved product, in product order.
func (s Snapshot) Lines() []Line {
	lines := make([]Line, 0, len(s.Products))
	for _, product := range s.Products {
		qty, ok := s.Quantities[strconv.FormatInt(product.ID, 10)]
		if !ok {
			continue
		}
		lines = append(lines, Line{Product: product, Quantity: qty})
	}
	return lines
}

func (s Snapshot) IsEmpty() bool {
	return len(s.Quantities) == 0
}
