package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/booklend/apiserver/internal/policy"
	"github.com/booklend/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// UserHandler provides HTTP handlers for user accounts.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers user routes. Reads and self-registration are open;
// updates and deletes require the owner or a superuser.
func UserRouter(r chi.Router, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(userService)

	r.Get("/", handler.ListUsers)
	r.Post("/", handler.CreateUser)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.With(authMiddleware).Put("/", handler.UpdateUser)
		r.With(authMiddleware).Delete("/", handler.DeleteUser)
	})
}

// ListUsers lists all users. ?id=, ?name= or ?email= fetch a single user;
// id wins over secondary keys.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if id := strings.TrimSpace(query.Get("id")); id != "" {
		user, err := h.userService.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err, "user")
			return
		}
		writeJSON(w, http.StatusOK, user)
		return
	}
	if name := strings.TrimSpace(query.Get("name")); name != "" {
		user, err := h.userService.GetByName(r.Context(), name)
		if err != nil {
			writeDomainError(w, err, "user")
			return
		}
		writeJSON(w, http.StatusOK, user)
		return
	}
	if email := strings.TrimSpace(query.Get("email")); email != "" {
		user, err := h.userService.GetByEmail(r.Context(), email)
		if err != nil {
			writeDomainError(w, err, "user")
			return
		}
		writeJSON(w, http.StatusOK, user)
		return
	}

	users, err := h.userService.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeDomainError(w, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// CreateUser self-registers an account. Alias of POST /auth/register
// without token issuance.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.Register(r.Context(), strings.TrimSpace(req.Name), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		writeDomainError(w, err, "user")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "userID")
	identity := identityFromContext(r.Context())
	if !policy.Allow(identity, policy.ActionUpdate, policy.Resource{Kind: policy.KindUser, OwnerID: targetID}) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req UserUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	// Role and activation flags are superuser-only; an owner editing their
	// own account cannot escalate.
	if (req.IsSuperuser != nil || req.IsActive != nil) && !identity.IsSuperuser {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	updated, err := h.userService.Update(r.Context(), targetID, services.UserUpdate{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		IsActive:    req.IsActive,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		writeDomainError(w, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "userID")
	identity := identityFromContext(r.Context())
	if !policy.Allow(identity, policy.ActionDelete, policy.Resource{Kind: policy.KindUser, OwnerID: targetID}) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if err := h.userService.Delete(r.Context(), targetID); err != nil {
		writeDomainError(w, err, "user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UserUpdateRequest is the partial user update payload.
type UserUpdateRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Password    *string `json:"password"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
}
