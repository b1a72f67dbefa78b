package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumashop/lumashop/internal/cart"
	"github.com/lumashop/lumashop/internal/config"
	"github.com/lumashop/lumashop/internal/db"
	"github.com/lumashop/lumashop/internal/models"
	"github.com/lumashop/lumashop/internal/services"
	"github.com/lumashop/lumashop/internal/session"
)

type memCatalog map[int64]models.Product

func (c memCatalog) FindByID(_ context.Context, id int64) (*models.Product, error) {
	p, ok := c[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c memCatalog) FindManyByIDs(_ context.Context, ids []int64) ([]models.Product, error) {
	found := []models.Product{}
	for _, id := range ids {
		if p, ok := c[id]; ok {
			found = append(found, p)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found, nil
}

type memAccounts struct {
	mu      sync.Mutex
	users   map[string]models.User
	mirrors map[int64]string
	nextID  int64
}

func (a *memAccounts) CreateUserWithCompanions(_ context.Context, user *models.User) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.users[user.Username]; ok {
		return db.ErrDuplicate
	}
	a.nextID++
	user.ID = a.nextID
	a.users[user.Username] = *user
	return nil
}

func (a *memAccounts) GetByUsername(_ context.Context, username string) (*models.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	user, ok := a.users[username]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &user, nil
}

func (a *memAccounts) GetByID(_ context.Context, userID int64) (*models.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, user := range a.users {
		if user.ID == userID {
			return &user, nil
		}
	}
	return nil, db.ErrNotFound
}

func (a *memAccounts) addUser(user models.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.users[user.Username] = user
}

func (a *memAccounts) GetMirror(_ context.Context, userID int64) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mirrors[userID], nil
}

func (a *memAccounts) SetMirror(_ context.Context, userID int64, mirror string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mirrors[userID] = mirror
	return nil
}

func (a *memAccounts) GetShippingAddress(_ context.Context, _ int64) (*models.ShippingAddress, error) {
	return nil, nil
}

type memOrders struct {
	mu     sync.Mutex
	orders map[int64]*models.Order
	items  map[int64][]models.OrderItem
	nextID int64
}

func (o *memOrders) CreateWithItems(_ context.Context, order *models.Order, items []models.OrderItem) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	order.ID = o.nextID
	order.DateOrdered = time.Now()
	stored := *order
	o.orders[order.ID] = &stored
	o.items[order.ID] = append([]models.OrderItem(nil), items...)
	return nil
}

func (o *memOrders) GetByID(_ context.Context, orderID int64) (*models.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.orders[orderID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (o *memOrders) ListByShipped(_ context.Context, shipped bool) ([]*models.Order, error) {
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

func (o *memOrders) ItemsForOrder(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.OrderItem(nil), o.items[orderID]...), nil
}

func (o *memOrders) SetShipped(_ context.Context, orderID int64, shipped bool, at time.Time) (*models.Order, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.orders[orderID]
	if !ok {
		return nil, false, db.ErrNotFound
	}
	transition := shipped && !order.Shipped
	if transition {
		order.DateShipped = &at
	}
	order.Shipped = shipped
	copied := *order
	return &copied, transition, nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testHandlers struct {
	*Handlers
	accounts *memAccounts
	orders   *memOrders
}

func newTestHandlers(t *testing.T) *testHandlers {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog := memCatalog{
		1: {ID: 1, Name: "Lamp", Price: decimal.RequireFromString("10.00")},
		2: {ID: 2, Name: "Desk", Price: decimal.RequireFromString("5.00")},
	}
	accounts := &memAccounts{users: map[string]models.User{}, mirrors: map[int64]string{}}
	orders := &memOrders{orders: map[int64]*models.Order{}, items: map[int64][]models.OrderItem{}}
	carts := cart.NewEngine(catalog, accounts, logger)

	h, err := New(Dependencies{
		Config:         &config.Config{BaseURL: "https://shop.example.com"},
		DB:             pingFunc(func(context.Context) error { return nil }),
		SessionManager: session.NewManager(session.NewMemoryStore(), false, time.Hour),
		Catalog:        catalog,
		Carts:          carts,
		Checkout:       services.NewCheckoutService(carts, orders, accounts, nil, logger),
		Accounts:       services.NewAccountService(accounts, carts, logger),
		Fulfillment:    services.NewFulfillmentService(orders, catalog, nil, logger),
		Logger:         logger,
	})
	if err != nil {
		t.Fatalf("failed to build handlers: %v", err)
	}
	return &testHandlers{Handlers: h, accounts: accounts, orders: orders}
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// serve runs handler with sess bound to the request the way SessionMiddleware
// would.
func serve(handler http.HandlerFunc, req *http.Request, sess *session.Data) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler(rec, req.WithContext(session.WithData(req.Context(), sess)))
	return rec
}

func lastFlash(t *testing.T, sess *session.Data) session.Flash {
	t.Helper()
	if len(sess.Flashes) == 0 {
		t.Fatalf("expected a flash message")
	}
	return sess.Flashes[len(sess.Flashes)-1]
}

var errUnavailable = errors.New("unavailable")
