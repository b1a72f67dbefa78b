package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/lumashop/lumashop/internal/config"
	"github.com/lumashop/lumashop/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.SecurityHeaders)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet).Name("health")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	// Storefront routes share the visitor session.
	store := r.PathPrefix("/").Subrouter()
	store.Use(h.SessionMiddleware)
	store.Use(h.MetricsContext)
	store.Use(h.RequireSameOrigin)
	store.HandleFunc("/", h.Landing).Methods(http.MethodGet).Name("landing")

	store.HandleFunc("/cart", h.CartSummary).Methods(http.MethodGet).Name("cart.summary")
	store.HandleFunc("/cart/add", h.CartAdd).Methods(http.MethodPost).Name("cart.add")
	store.HandleFunc("/cart/update", h.CartUpdate).Methods(http.MethodPost).Name("cart.update")
	store.HandleFunc("/cart/delete", h.CartDelete).Methods(http.MethodPost).Name("cart.delete")

	store.HandleFunc("/checkout", h.Checkout).Methods(http.MethodGet).Name("checkout")
	store.HandleFunc("/checkout", h.CaptureShipping).Methods(http.MethodPost).Name("checkout.shipping")
	// Any method is accepted so that a stray GET is answered with an access
	// denied flash instead of a 405.
	store.HandleFunc("/checkout/billing", h.BillingInfo).Name("checkout.billing")
	store.HandleFunc("/checkout/place-order", h.PlaceOrder).Name("checkout.place_order")
	store.HandleFunc("/payment/success", h.PaymentSuccess).Methods(http.MethodGet).Name("payment.success")

	store.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost).Name("auth.register")
	store.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost).Name("auth.login")
	store.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodGet).Name("auth.logout")

	// Staff-only order dashboards.
	adminRouter := store.PathPrefix("/admin").Subrouter()
	adminRouter.Use(h.RequireStaff)
	adminRouter.HandleFunc("/orders", h.AdminOrders).Methods(http.MethodGet).Name("admin.orders")
	adminRouter.HandleFunc("/orders/ship", h.AdminQuickShip).Methods(http.MethodPost).Name("admin.orders.ship")
	adminRouter.HandleFunc("/orders/{id:[0-9]+}", h.AdminOrderDetail).Methods(http.MethodGet).Name("admin.orders.detail")
	adminRouter.HandleFunc("/orders/{id:[0-9]+}/shipping", h.AdminSetShipping).Methods(http.MethodPost).Name("admin.orders.shipping")

	return r
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
