package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/lumashop/lumashop/internal/cart"
)

type cartQuantityResponse struct {
	Quantity int `json:"quantity"`
}

type cartProductResponse struct {
	Product int64 `json:"product"`
}

// CartSummary lists the cart products, quantities and total.
func (h *Handlers) CartSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	snapshot, err := h.carts.Snapshot(ctx, sess)
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to load cart", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "Failed to load cart")
		return
	}
	h.writeJSON(w, r, http.StatusOK, snapshot)
}

// CartAdd puts a catalog product in the cart unless it is already there and
// responds with the number of distinct products.
func (h *Handlers) CartAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	productID, err := productIDField(r, "product_id")
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	qty, err := quantityField(r, "product_qty")
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.catalog.FindByID(ctx, productID)
	if err != nil {
		logger.Error("failed to look up product", "error", err, "product_id", productID)
		h.writeError(w, r, http.StatusInternalServerError, "Failed to add product")
		return
	}
	if product == nil {
		h.writeError(w, r, http.StatusNotFound, "Product not found")
		return
	}

	if err := h.carts.AddResolvedProduct(ctx, sess, *product, qty); err != nil {
		h.writeCartError(w, r, err, productID)
		return
	}

	sess.AddFlash(flashSuccess, flashProductAdded)
	h.writeJSON(w, r, http.StatusOK, cartQuantityResponse{Quantity: h.carts.Size(sess)})
}

// CartUpdate overwrites the quantity of a product and echoes it back.
func (h *Handlers) CartUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	productID, err := productIDField(r, "product_id")
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	qty, err := quantityField(r, "product_qty")
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.carts.Update(ctx, sess, strconv.FormatInt(productID, 10), qty); err != nil {
		h.writeCartError(w, r, err, productID)
		return
	}

	sess.AddFlash(flashSuccess, flashCartUpdated)
	h.writeJSON(w, r, http.StatusOK, cartQuantityResponse{Quantity: qty})
}

// CartDelete removes a product from the cart. Unknown ids are not an error.
func (h *Handlers) CartDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	productID, err := productIDField(r, "product_id")
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.carts.Delete(ctx, sess, strconv.FormatInt(productID, 10)); err != nil {
		h.writeCartError(w, r, err, productID)
		return
	}

	sess.AddFlash(flashSuccess, flashProductRemoved)
	h.writeJSON(w, r, http.StatusOK, cartProductResponse{Product: productID})
}

func (h *Handlers) writeCartError(w http.ResponseWriter, r *http.Request, err error, productID int64) {
	if errors.Is(err, cart.ErrInvalidQuantity) {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	h.loggerFromContext(r.Context()).Error("failed to update cart", "error", err, "product_id", productID)
	h.writeError(w, r, http.StatusInternalServerError, "Failed to update cart")
}
