package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/lumashop/lumashop/internal/cart"
	"github.com/lumashop/lumashop/internal/config"
	"github.com/lumashop/lumashop/internal/logging"
	"github.com/lumashop/lumashop/internal/services"
	"github.com/lumashop/lumashop/internal/session"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers provides the HTTP handlers of the storefront.
type Handlers struct {
	config         *config.Config
	db             Pinger
	sessionManager *session.Manager
	catalog        cart.Catalog
	carts          *cart.Engine
	checkout       *services.CheckoutService
	accounts       *services.AccountService
	fulfillment    *services.FulfillmentService
	logger         *slog.Logger
}

type Dependencies struct {
	Config         *config.Config
	DB             Pinger
	SessionManager *session.Manager
	Catalog        cart.Catalog
	Carts          *cart.Engine
	Checkout       *services.CheckoutService
	Accounts       *services.AccountService
	Fulfillment    *services.FulfillmentService
	Logger         *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.SessionManager == nil {
		return nil, fmt.Errorf("handlers dependencies: sessionManager is required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("handlers dependencies: catalog is required")
	}
	if deps.Carts == nil {
		return nil, fmt.Errorf("handlers dependencies: carts is required")
	}
	if deps.Checkout == nil {
		return nil, fmt.Errorf("handlers dependencies: checkout is required")
	}
	if deps.Accounts == nil {
		return nil, fmt.Errorf("handlers dependencies: accounts is required")
	}
	if deps.Fulfillment == nil {
		return nil, fmt.Errorf("handlers dependencies: fulfillment is required")
	}

	return &Handlers{
		config:         deps.Config,
		db:             deps.DB,
		sessionManager: deps.SessionManager,
		catalog:        deps.Catalog,
		carts:          deps.Carts,
		checkout:       deps.Checkout,
		accounts:       deps.Accounts,
		fulfillment:    deps.Fulfillment,
		logger:         logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.db.Ping(ctx); err != nil {
		h.loggerFromContext(ctx).Error("database health check failed", "error", err)
		h.writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

// SessionMiddleware binds the visitor session to the request context.
func (h *Handlers) SessionMiddleware(next http.Handler) http.Handler {
	return h.sessionManager.Middleware(next)
}

// RequireStaff lets only signed-in staff members through, checking the
// account on every request so revoked rights apply at once. Everyone else is
// sent home with an access denied flash.
func (h *Handlers) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := h.loggerFromContext(ctx)
		sess := session.FromContext(ctx)
		userID, signedIn := sess.AuthenticatedUserID()
		if !signedIn || !sess.IsStaff {
			logger.Warn("blocked non-staff request", "path", r.URL.Path)
			h.denyAccess(w, r, flashAccessDenied)
			return
		}

		staff, err := h.accounts.IsStaff(ctx, userID)
		if err != nil {
			logger.Error("failed to check staff rights", "error", err, "user_id", userID)
			h.writeError(w, r, http.StatusInternalServerError, "Failed to check access")
			return
		}
		if !staff {
			sess.IsStaff = false
			sess.MarkModified()
			logger.Warn("blocked revoked staff session", "path", r.URL.Path, "user_id", userID)
			h.denyAccess(w, r, flashAccessDenied)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

// sessionFromRequest returns the session loaded by SessionMiddleware.
func (h *Handlers) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*session.Data, bool) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		h.loggerFromContext(r.Context()).Error("session middleware is not installed", "path", r.URL.Path)
		h.writeError(w, r, http.StatusInternalServerError, "Session unavailable")
		return nil, false
	}
	return sess, true
}

func SecureCookiesFromConfig(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		if parsed, err := url.Parse(baseURL); err == nil {
			return strings.EqualFold(parsed.Scheme, "https")
		}
	}

	return cfg.Port == "443" || cfg.Port == "8443"
}
