package handlers

import (
	"net/http"

	"github.com/robertfedus/natours/middleware"
)

type UsersHandler struct {
	Store UserStore
}

// Me returns the authenticated user's profile. The password hash never
// leaves the store's projection, and the json tags hide the reset fields.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondFail(w, http.StatusUnauthorized, "You are not logged in")
		return
	}
	user, err := h.Store.UserByID(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"user": user})
}

// List returns all users. Admin only, enforced by route middleware.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondList(w, len(users), map[string]interface{}{"users": users})
}
