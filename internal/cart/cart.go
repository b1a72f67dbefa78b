// Package cart implements the session-scoped shopping cart.
//
// A cart is a mapping from product id to quantity held in the visitor's
// session. While the visitor is signed in every mutation is also written
// through to the account profile as a cart mirror so the cart can be
// restored on the next login.
package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/getsentry/sentry-go/attribute"
	"github.com/shopspring/decimal"

	"github.com/lumashop/lumashop/internal/logging"
	"github.com/lumashop/lumashop/internal/models"
	"github.com/lumashop/lumashop/internal/observability"
)

// MaxQuantity is the largest quantity a single cart entry may hold.
const MaxQuantity = 999

var ErrInvalidQuantity = fmt.Errorf("quantity must be between 1 and %d", MaxQuantity)

// Entries maps a product id to the requested quantity.
type Entries map[string]int

// Clone returns an independent copy of the entries.
func (e Entries) Clone() Entries {
	cloned := make(Entries, len(e))
	for id, qty := range e {
		cloned[id] = qty
	}
	return cloned
}

// IDs returns the product ids sorted ascending.
func (e Entries) IDs() []string {
	ids := make([]string, 0, len(e))
	for id := range e {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// State is the per-visitor session context a cart operates on.
type State interface {
	// CartEntries returns the session cart, creating an empty one if needed.
	CartEntries() Entries
	// ClearCart removes the cart from the session.
	ClearCart()
	// MarkModified forces the session to be persisted.
	MarkModified()
	AuthenticatedUserID() (int64, bool)
}

// Catalog resolves product ids to products.
type Catalog interface {
	FindByID(ctx context.Context, id int64) (*models.Product, error)
	FindManyByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
}

// MirrorStore persists the serialized cart against a user profile.
type MirrorStore interface {
	GetMirror(ctx context.Context, userID int64) (string, error)
	SetMirror(ctx context.Context, userID int64, mirror string) error
}

type Engine struct {
	catalog Catalog
	mirrors MirrorStore
	logger  *slog.Logger
}

func NewEngine(catalog Catalog, mirrors MirrorStore, logger *slog.Logger) *Engine {
	return &Engine{
		catalog: catalog,
		mirrors: mirrors,
		logger:  logger,
	}
}

func (e *Engine) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, e.logger)
}

// AddResolvedProduct inserts a catalog product unless it is already in the cart.
func (e *Engine) AddResolvedProduct(ctx context.Context, st State, product models.Product, quantity int) error {
	return e.AddRawID(ctx, st, strconv.FormatInt(product.ID, 10), quantity)
}

// AddRawID inserts the product id unless it is already present. An existing
// entry keeps its quantity.
func (e *Engine) AddRawID(ctx context.Context, st State, productID string, quantity int) error {
	if !validQuantity(quantity) {
		return ErrInvalidQuantity
	}

	entries := st.CartEntries()
	if _, exists := entries[productID]; !exists {
		entries[productID] = quantity
	}
	st.MarkModified()
	observability.Count(ctx, "cart.mutation", attribute.String("op", "add"))

	return e.syncMirror(ctx, st)
}

// Update sets the quantity for the product, creating the entry if needed.
func (e *Engine) Update(ctx context.Context, st State, productID string, quantity int) (Entries, error) {
	if !validQuantity(quantity) {
		return nil, ErrInvalidQuantity
	}

	entries := st.CartEntries()
	entries[productID] = quantity
	st.MarkModified()
	observability.Count(ctx, "cart.mutation", attribute.String("op", "update"))

	if err := e.syncMirror(ctx, st); err != nil {
		return entries, err
	}
	return entries, nil
}

// Delete removes the product from the cart. Missing ids are ignored.
func (e *Engine) Delete(ctx context.Context, st State, productID string) error {
	entries := st.CartEntries()
	delete(entries, productID)
	st.MarkModified()
	observability.Count(ctx, "cart.mutation", attribute.String("op", "delete"))

	return e.syncMirror(ctx, st)
}

// Products resolves the cart against the catalog. Products that no longer
// exist are left out.
func (e *Engine) Products(ctx context.Context, st State) ([]models.Product, error) {
	entries := st.CartEntries()
	if len(entries) == 0 {
		return []models.Product{}, nil
	}

	ids := make([]int64, 0, len(entries))
	for _, key := range entries.IDs() {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			e.loggerFromContext(ctx).Debug("skipping non-numeric cart key", "key", key)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	products, err := e.catalog.FindManyByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cart products: %w", err)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// Quantities returns the raw session mapping.
func (e *Engine) Quantities(st State) Entries {
	return st.CartEntries()
}

// Size is the number of distinct products in the cart.
func (e *Engine) Size(st State) int {
	return len(st.CartEntries())
}

// Total sums price times quantity over the products that still exist.
func (e *Engine) Total(ctx context.Context, st State) (decimal.Decimal, error) {
	products, err := e.Products(ctx, st)
	if err != nil {
		return decimal.Zero, err
	}
	return total(products, st.CartEntries()), nil
}

// Snapshot captures products, quantities and total at a single instant.
func (e *Engine) Snapshot(ctx context.Context, st State) (Snapshot, error) {
	products, err := e.Products(ctx, st)
	if err != nil {
		return Snapshot{}, err
	}
	quantities := st.CartEntries().Clone()
	return Snapshot{
		Products:   products,
		Quantities: quantities,
		Total:      total(products, quantities),
	}, nil
}

// MergeMirror replays a persisted mirror into the session cart. Entries the
// session already holds win over mirrored ones.
func (e *Engine) MergeMirror(ctx context.Context, st State, mirror string) error {
	entries, err := DecodeMirror(mirror)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	for _, id := range entries.IDs() {
		qty := entries[id]
		if !validQuantity(qty) {
			e.loggerFromContext(ctx).Warn("dropping mirrored entry with invalid quantity", "product_id", id, "quantity", qty)
			continue
		}
		if err := e.AddRawID(ctx, st, id, qty); err != nil {
			return fmt.Errorf("failed to merge mirrored product %s: %w", id, err)
		}
	}
	return nil
}

// Clear empties the profile mirror for signed-in visitors and then drops the
// session cart.
func (e *Engine) Clear(ctx context.Context, st State) error {
	if userID, ok := st.AuthenticatedUserID(); ok && e.mirrors != nil {
		if err := e.mirrors.SetMirror(ctx, userID, ""); err != nil {
			return fmt.Errorf("failed to clear cart mirror: %w", err)
		}
	}
	st.ClearCart()
	st.MarkModified()
	return nil
}

func (e *Engine) syncMirror(ctx context.Context, st State) error {
	userID, ok := st.AuthenticatedUserID()
	if !ok || e.mirrors == nil {
		return nil
	}

	mirror, err := EncodeMirror(st.CartEntries())
	if err != nil {
		return err
	}
	if err := e.mirrors.SetMirror(ctx, userID, mirror); err != nil {
		return fmt.Errorf("failed to write cart mirror: %w", err)
	}
	return nil
}

func total(products []models.Product, quantities Entries) decimal.Decimal {
	sum := decimal.Zero
	for _, product := range products {
		qty, ok := quantities[strconv.FormatInt(product.ID, 10)]
		if !ok {
			continue
		}
		sum = sum.Add(product.Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return sum.Round(2)
}

func validQuantity(quantity int) bool {
	return quantity >= 1 && quantity <= MaxQuantity
}
