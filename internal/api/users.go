package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"zxsgit/internal/models"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterRequest
	if !decode(w, r, &in) {
		return
	}
	s, err := h.store.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, "register", err)
		return
	}
	h.log.WithField("email", s.Email).Info("account created")
	models.WriteJSON(w, http.StatusOK, models.SessionResponse{Envelope: ok("Account created"), Session: s})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if !decode(w, r, &in) {
		return
	}
	s, err := h.store.Login(r.Context(), in)
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, models.SessionResponse{Envelope: ok("Signed in"), Session: s})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.Users(r.Context())
	if err != nil {
		h.fail(w, r, "list users", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, models.UsersResponse{Envelope: ok(""), Users: users})
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var in models.UserUpdateRequest
	if !decode(w, r, &in) {
		return
	}
	u, err := h.store.UpdateUser(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		h.fail(w, r, "update user", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, models.UserResponse{Envelope: ok("User updated"), User: u})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteUser(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, "delete user", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, ok("User deleted"))
}

// SyncUsers merges an uploaded user list, e.g. accounts created while the
// client was offline.
func (h *Handler) SyncUsers(w http.ResponseWriter, r *http.Request) {
	var in models.SyncUsersRequest
	if !decode(w, r, &in) {
		return
	}
	users, err := h.store.SyncUsers(r.Context(), in.Users)
	if err != nil {
		h.fail(w, r, "sync users", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, models.UsersResponse{Envelope: ok("Users synced"), Users: users})
}
