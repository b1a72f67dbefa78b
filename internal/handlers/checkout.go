package handlers

import (
	"errors"
	"net/http"

	"github.com/lumashop/lumashop/internal/models"
	"github.com/lumashop/lumashop/internal/services"
)

// Checkout shows the cart next to a shipping form, pre-filled for signed-in
// visitors.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	view, err := h.checkout.Checkout(ctx, sess)
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to load checkout", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "Failed to load checkout")
		return
	}
	h.writeJSON(w, r, http.StatusOK, view)
}

func (h *Handlers) CaptureShipping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var submission *models.ShippingSnapshot
	if r.Method == http.MethodPost {
		submission = shippingForm(r)
	}

	view, err := h.checkout.CaptureShipping(ctx, sess, submission)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, view)
}

// BillingInfo stores the shipping form in the session and presents the
// billing form.
func (h *Handlers) BillingInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var submission *models.ShippingSnapshot
	if r.Method == http.MethodPost {
		submission = shippingForm(r)
		if err := validateForm(submission); err != nil {
			h.writeFormError(w, r, err)
			return
		}
	}

	view, err := h.checkout.PresentBilling(ctx, sess, submission)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, view)
}

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var payment *models.PaymentDetails
	if r.Method == http.MethodPost {
		payment = paymentForm(r)
		if err := validateForm(payment); err != nil {
			h.writeFormError(w, r, err)
			return
		}
	}

	result, err := h.checkout.PlaceOrder(ctx, sess, payment)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	sess.AddFlash(flashSuccess, flashOrderPlaced)
	h.writeJSON(w, r, http.StatusCreated, result)
}

func (h *Handlers) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, services.PlacementResult{Success: true})
}

func (h *Handlers) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrAccessDenied):
		h.denyAccess(w, r, flashAccessDenied)
	case errors.Is(err, services.ErrShippingMissing):
		h.redirectWithFlash(w, r, flashError, flashShippingMissing, "/")
	default:
		h.loggerFromContext(r.Context()).Error("checkout step failed", "error", err, "path", r.URL.Path)
		h.writeError(w, r, http.StatusInternalServerError, "Checkout failed")
	}
}
