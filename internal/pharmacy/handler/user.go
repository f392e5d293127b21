package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/service"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
)

// UserHandler handles user administration endpoints
type UserHandler struct {
	users  *service.UserService
	logger *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *service.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: log,
	}
}

// List lists users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	a, err := currentActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	p := httputil.ParsePagination(r, 20)
	users, total, err := h.users.List(r.Context(), p, a)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, users, httputil.NewMeta(p, total))
}

// Create creates a user
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, err := currentActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.CreateUserInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	user, err := h.users.Create(r.Context(), req, a)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, user)
}

// Update updates a user
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	a, err := currentActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.UpdateUserInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	user, err := h.users.Update(r.Context(), chi.URLParam(r, "id"), req, a)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

// Delete deactivates a user
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, err := currentActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.users.Delete(r.Context(), chi.URLParam(r, "id"), a); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// ResetPassword sets a new password for a user
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	a, err := currentActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.ResetPasswordInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.users.ResetPassword(r.Context(), chi.URLParam(r, "id"), req, a); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
