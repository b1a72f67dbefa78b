package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumashop/lumashop/internal/cart"
	"github.com/lumashop/lumashop/internal/db"
	"github.com/lumashop/lumashop/internal/models"
)

type fakeCatalog struct {
	mu       sync.Mutex
	products map[int64]models.Product
}

func newFakeCatalog(products ...models.Product) *fakeCatalog {
	c := &fakeCatalog{products: make(map[int64]models.Product)}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *fakeCatalog) setPrice(id int64, price string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.products[id]
	p.Price = decimal.RequireFromString(price)
	c.products[id] = p
}

func (c *fakeCatalog) FindByID(_ context.Context, id int64) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *fakeCatalog) FindManyByIDs(_ context.Context, ids []int64) ([]models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	found := []models.Product{}
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			found = append(found, p)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found, nil
}

// fakeAccounts is an in-memory account, profile and shipping address store.
type fakeAccounts struct {
	mu        sync.Mutex
	users     map[string]*models.User
	mirrors   map[int64]string
	addresses map[int64]*models.ShippingAddress
	nextID    int64
	mirrorErr error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		users:     make(map[string]*models.User),
		mirrors:   make(map[int64]string),
		addresses: make(map[int64]*models.ShippingAddress),
	}
}

func (a *fakeAccounts) CreateUserWithCompanions(_ context.Context, user *models.User) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.users[user.Username]; exists {
		return db.ErrDuplicate
	}
	a.nextID++
	user.ID = a.nextID
	user.CreatedAt = time.Now()
	stored := *user
	a.users[user.Username] = &stored
	a.mirrors[user.ID] = ""
	id := user.ID
	a.addresses[user.ID] = &models.ShippingAddress{ID: id, UserID: &id}
	return nil
}

func (a *fakeAccounts) GetByUsername(_ context.Context, username string) (*models.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	user, ok := a.users[strings.TrimSpace(username)]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (a *fakeAccounts) GetByID(_ context.Context, userID int64) (*models.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, user := range a.users {
		if user.ID == userID {
			copied := *user
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (a *fakeAccounts) GetMirror(_ context.Context, userID int64) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mirrors[userID], nil
}

func (a *fakeAccounts) SetMirror(_ context.Context, userID int64, mirror string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mirrorErr != nil {
		return a.mirrorErr
	}
	a.mirrors[userID] = mirror
	return nil
}

func (a *fakeAccounts) GetShippingAddress(_ context.Context, userID int64) (*models.ShippingAddress, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	address, ok := a.addresses[userID]
	if !ok {
		return nil, nil
	}
	copied := *address
	return &copied, nil
}

func (a *fakeAccounts) mirror(userID int64) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mirrors[userID]
}

// fakeOrders stores orders in memory and mimics the row-locked shipped
// transition of the database store.
type fakeOrders struct {
	mu        sync.Mutex
	orders    map[int64]*models.Order
	items     map[int64][]models.OrderItem
	nextID    int64
	createErr error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		orders: make(map[int64]*models.Order),
		items:  make(map[int64][]models.OrderItem),
	}
}

func (o *fakeOrders) CreateWithItems(_ context.Context, order *models.Order, items []models.OrderItem) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.createErr != nil {
		return o.createErr
	}
	o.nextID++
	order.ID = o.nextID
	order.DateOrdered = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	stored := *order
	o.orders[order.ID] = &stored
	for i := range items {
		items[i].ID = int64(i + 1)
		items[i].OrderID = order.ID
		items[i].UserID = order.UserID
	}
	o.items[order.ID] = append([]models.OrderItem(nil), items...)
	return nil
}

func (o *fakeOrders) GetByID(_ context.Context, orderID int64) (*models.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.orders[orderID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (o *fakeOrders) ListByShipped(_ context.Context, shipped bool) ([]*models.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	result := []*models.Order{}
	for _, order := range o.orders {
		if order.Shipped == shipped {
			copied := *order
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (o *fakeOrders) ItemsForOrder(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.OrderItem(nil), o.items[orderID]...), nil
}

func (o *fakeOrders) SetShipped(_ context.Context, orderID int64, shipped bool, at time.Time) (*models.Order, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.orders[orderID]
	if !ok {
		return nil, false, db.ErrNotFound
	}
	transition := shipped && !order.Shipped
	if transition {
		stamp := at
		order.DateShipped = &stamp
	}
	order.Shipped = shipped
	copied := *order
	return &copied, transition, nil
}

type recordingEmailSender struct {
	mu            sync.Mutex
	confirmations []*models.Order
	lines         [][]OrderLine
	shipped       []*models.Order
	err           error
}

func (r *recordingEmailSender) SendOrderConfirmation(_ context.Context, order *models.Order, lines []OrderLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmations = append(r.confirmations, order)
	r.lines = append(r.lines, lines)
	return r.err
}

func (r *recordingEmailSender) SendOrderShipped(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shipped = append(r.shipped, order)
	return r.err
}

var errBoom = errors.New("boom")

func product(id int64, name, price string) models.Product {
	return models.Product{ID: id, Name: name, Price: decimal.RequireFromString(price)}
}

func newEngine(catalog cart.Catalog, accounts *fakeAccounts) *cart.Engine {
	return cart.NewEngine(catalog, accounts, nil)
}
