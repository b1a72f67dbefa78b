package handlers

import (
	"net/http"

	"github.com/lumashop/lumashop/internal/session"
)

type landingResponse struct {
	Flashes  []session.Flash `json:"flashes"`
	Username string          `json:"username,omitempty"`
	CartSize int             `json:"cart_size"`
}

// Landing returns the pending flash messages, consuming them, together with
// the cart size for the header badge. Reading it does not create a cart.
func (h *Handlers) Landing(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, r, http.StatusOK, landingResponse{
		Flashes:  sess.PopFlashes(),
		Username: sess.Username,
		CartSize: len(sess.Cart),
	})
}
