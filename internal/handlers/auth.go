package handlers

import (
	"errors"
	"net/http"

	"github.com/lumashop/lumashop/internal/models"
	"github.com/lumashop/lumashop/internal/services"
	"github.com/lumashop/lumashop/internal/session"
)

type accountResponse struct {
	User     *models.User `json:"user"`
	CartSize int          `json:"cart_size"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	input, err := registerForm(r)
	if err != nil {
		h.writeFormError(w, r, err)
		return
	}

	user, err := h.accounts.Register(ctx, sess, input)
	if err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			h.writeError(w, r, http.StatusConflict, err.Error())
			return
		}
		h.loggerFromContext(ctx).Error("failed to register account", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "Failed to create account")
		return
	}

	h.sessionManager.Rotate(ctx, w, sess)
	sess.AddFlash(flashSuccess, flashRegistered)
	h.writeJSON(w, r, http.StatusCreated, accountResponse{User: user, CartSize: h.carts.Size(sess)})
}

// Login signs the visitor in and restores the cart saved on the profile.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	user, err := h.accounts.Login(ctx, sess, formValue(r, "username"), r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.writeError(w, r, http.StatusUnauthorized, "There was an error, please try again...")
			return
		}
		h.loggerFromContext(ctx).Error("failed to log in", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "Failed to log in")
		return
	}

	h.sessionManager.Rotate(ctx, w, sess)
	sess.AddFlash(flashSuccess, flashLoggedIn)
	h.writeJSON(w, r, http.StatusOK, accountResponse{User: user, CartSize: h.carts.Size(sess)})
}

// Logout drops the whole session, cart and shipping details included.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fresh := h.sessionManager.Destroy(ctx, w, session.FromContext(ctx))
	session.Replace(ctx, fresh)

	fresh.AddFlash(flashSuccess, flashLoggedOut)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
