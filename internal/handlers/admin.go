package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/lumashop/lumashop/internal/services"
)

// AdminOrders lists orders filtered by the shipped query parameter. Orders
// that have not shipped yet are listed by default.
func (h *Handlers) AdminOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	shipped := false
	if raw := strings.TrimSpace(r.URL.Query().Get("shipped")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, "shipped must be true or false")
			return
		}
		shipped = parsed
	}

	orders, err := h.fulfillment.ListOrders(ctx, shipped)
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to list orders", "error", err, "shipped", shipped)
		h.writeError(w, r, http.StatusInternalServerError, "Failed to load orders")
		return
	}
	h.writeJSON(w, r, http.StatusOK, orders)
}

func (h *Handlers) AdminOrderDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := orderIDFromPath(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.fulfillment.OrderDetail(ctx, orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			h.writeError(w, r, http.StatusNotFound, "Order not found")
			return
		}
		h.loggerFromContext(ctx).Error("failed to load order", "error", err, "order_id", orderID)
		h.writeError(w, r, http.StatusInternalServerError, "Failed to load order")
		return
	}
	h.writeJSON(w, r, http.StatusOK, detail)
}

// AdminSetShipping sets the shipped flag from the shipping_status field.
func (h *Handlers) AdminSetShipping(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDFromPath(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	shipped := formValue(r, "shipping_status") == "true"
	h.setShipped(w, r, orderID, shipped)
}

// AdminQuickShip marks the order named by the num field as shipped from the
// dashboards.
func (h *Handlers) AdminQuickShip(w http.ResponseWriter, r *http.Request) {
	orderID, err := productIDField(r, "num")
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "num must be a positive integer")
		return
	}
	h.setShipped(w, r, orderID, true)
}

func (h *Handlers) setShipped(w http.ResponseWriter, r *http.Request, orderID int64, shipped bool) {
	ctx := r.Context()

	if _, err := h.fulfillment.SetShipped(ctx, orderID, shipped); err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			h.writeError(w, r, http.StatusNotFound, "Order not found")
			return
		}
		h.loggerFromContext(ctx).Error("failed to update shipping status", "error", err, "order_id", orderID)
		h.writeError(w, r, http.StatusInternalServerError, "Failed to update shipping status")
		return
	}

	h.redirectWithFlash(w, r, flashSuccess, flashShippingUpdated, "/")
}

func orderIDFromPath(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("order id must be a positive integer")
	}
	return id, nil
}
