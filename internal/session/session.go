// Package session provides per-visitor session management.
package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lumashop/lumashop/internal/cart"
	"github.com/lumashop/lumashop/internal/models"
)

const (
	cookieName = "lumashop_session"
	defaultTTL = 14 * 24 * time.Hour
)

// Flash is a one-time message shown on the next page.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Data represents the data stored in a session
type Data struct {
	UserID    int64                    `json:"user_id"`
	Username  string                   `json:"username"`
	IsStaff   bool                     `json:"is_staff"`
	Cart      cart.Entries             `json:"cart,omitempty"`
	Shipping  *models.ShippingSnapshot `json:"shipping,omitempty"`
	Flashes   []Flash                  `json:"flashes,omitempty"`
	CreatedAt int64                    `json:"created_at"`

	id       string
	modified bool
}

// CartEntries returns the session cart, creating it on first access.
func (d *Data) CartEntries() cart.Entries {
	if d.Cart == nil {
		d.Cart = cart.Entries{}
		d.modified = true
	}
	return d.Cart
}

func (d *Data) ClearCart() {
	d.Cart = nil
	d.modified = true
}

func (d *Data) MarkModified() {
	d.modified = true
}

// Modified reports whether the session must be written back to the store.
func (d *Data) Modified() bool {
	return d != nil && d.modified
}

func (d *Data) AuthenticatedUserID() (int64, bool) {
	if d == nil || d.UserID <= 0 {
		return 0, false
	}
	return d.UserID, true
}

func (d *Data) ShippingSnapshot() *models.ShippingSnapshot {
	if d == nil || d.Shipping == nil {
		return nil
	}
	snapshot := *d.Shipping
	return &snapshot
}

// SetShippingSnapshot overwrites any previously captured shipping details.
func (d *Data) SetShippingSnapshot(snapshot models.ShippingSnapshot) {
	d.Shipping = &snapshot
	d.modified = true
}

func (d *Data) ClearShippingSnapshot() {
	if d.Shipping == nil {
		return
	}
	d.Shipping = nil
	d.modified = true
}

// BindUser attaches an authenticated account to the session. Switching to a
// different account drops the cart, shipping details and flashes of the
// previous one.
func (d *Data) BindUser(user *models.User) {
	if user == nil {
		return
	}
	if d.UserID > 0 && d.UserID != user.ID {
		d.ClearCart()
		d.ClearShippingSnapshot()
		d.Flashes = nil
	}
	d.UserID = user.ID
	d.Username = user.Username
	d.IsStaff = user.IsStaff
	d.modified = true
}

func (d *Data) AddFlash(level, message string) {
	d.Flashes = append(d.Flashes, Flash{Level: level, Message: message})
	d.modified = true
}

// PopFlashes returns pending flashes and removes them from the session.
func (d *Data) PopFlashes() []Flash {
	if d == nil || len(d.Flashes) == 0 {
		return []Flash{}
	}
	flashes := d.Flashes
	d.Flashes = nil
	d.modified = true
	return flashes
}

// Manager handles session creation, validation, and storage
type Manager struct {
	store  Store
	secure bool
	ttl    time.Duration
}

// Store defines the interface for session storage
type Store interface {
	Get(ctx context.Context, key string) (*Data, bool)
	Set(ctx context.Context, key string, data *Data, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Close() error
}

// NewManager creates a new session manager
func NewManager(store Store, secure bool, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Manager{
		store:  store,
		secure: secure,
		ttl:    ttl,
	}
}

func (m *Manager) Close() error {
	if m == nil || m.store == nil {
		return nil
	}
	return m.store.Close()
}

// Load returns the visitor's session, starting a new anonymous one and
// setting its cookie when none is present.
func (m *Manager) Load(ctx context.Context, w http.ResponseWriter, r *http.Request) *Data {
	if ctx == nil {
		ctx = r.Context()
	}

	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		if data, ok := m.store.Get(ctx, cookie.Value); ok {
			data.id = cookie.Value
			return data
		}
	}

	data := &Data{
		id:        generateSessionID(),
		CreatedAt: time.Now().Unix(),
	}
	m.setCookie(w, data.id)
	return data
}

// Save writes the session back to the store when it was modified.
func (m *Manager) Save(ctx context.Context, data *Data) error {
	if data == nil {
		return fmt.Errorf("session data is required")
	}
	if data.id == "" {
		return fmt.Errorf("session has no id")
	}
	if !data.modified {
		return nil
	}

	m.store.Set(ctx, data.id, data, m.ttl)
	data.modified = false
	return nil
}

// Rotate moves the session to a fresh id, keeping its contents. Used on login
// so an id issued to an anonymous visitor never becomes authenticated.
func (m *Manager) Rotate(ctx context.Context, w http.ResponseWriter, data *Data) {
	if data == nil {
		return
	}
	if data.id != "" {
		m.store.Delete(ctx, data.id)
	}
	data.id = generateSessionID()
	data.modified = true
	m.setCookie(w, data.id)
}

// Destroy removes the session and clears the cookie. The returned data is a
// fresh anonymous session bound to a new id.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, data *Data) *Data {
	if data != nil && data.id != "" {
		m.store.Delete(ctx, data.id)
	}

	fresh := &Data{
		id:        generateSessionID(),
		CreatedAt: time.Now().Unix(),
	}
	m.setCookie(w, fresh.id)
	return fresh
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// generateSessionID generates a session ID.
func generateSessionID() string {
	return uuid.NewString()
}

func cloneData(data *Data) *Data {
	if data == nil {
		return nil
	}
	cloned := *data
	if data.Cart != nil {
		cloned.Cart = data.Cart.Clone()
	}
	if data.Shipping != nil {
		shipping := *data.Shipping
		cloned.Shipping = &shipping
	}
	if data.Flashes != nil {
		cloned.Flashes = append([]Flash(nil), data.Flashes...)
	}
	cloned.modified = false
	return &cloned
}
