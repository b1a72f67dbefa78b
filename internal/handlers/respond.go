package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/lumashop/lumashop/internal/session"
)

const (
	flashSuccess = "success"
	flashError   = "error"
)

const (
	flashAccessDenied    = "Access Denied!"
	flashProductAdded    = "Product Added To Cart Successfully!"
	flashProductRemoved  = "Product Has Been Removed From Cart!"
	flashCartUpdated     = "Your Cart Has Been Updated!"
	flashShippingMissing = "Shipping information is missing!"
	flashOrderPlaced     = "Order placed successfully!"
	flashShippingUpdated = "Shipping Status Updated"
	flashLoggedIn        = "You Have Been Logged In!"
	flashLoggedOut       = "You have been logged out! Thanks for stopping by :)"
	flashRegistered      = "Username Created! Please Fill Out Your User Info"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.writeJSON(w, r, status, errorResponse{Error: message})
}

// redirectWithFlash queues a one-time message and sends the visitor to target.
func (h *Handlers) redirectWithFlash(w http.ResponseWriter, r *http.Request, level, message, target string) {
	if sess := session.FromContext(r.Context()); sess != nil {
		sess.AddFlash(level, message)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handlers) denyAccess(w http.ResponseWriter, r *http.Request, message string) {
	h.redirectWithFlash(w, r, flashSuccess, message, "/")
}
