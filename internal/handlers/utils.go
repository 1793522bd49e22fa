package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/booklend/apiserver/internal/services"
	"github.com/booklend/apiserver/internal/store"
	"github.com/booklend/apiserver/types"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// identityFromContext returns the authenticated identity, or nil for an
// anonymous request.
func identityFromContext(ctx context.Context) *types.Identity {
	identity, ok := ctx.Value(contextIdentityKey).(*types.Identity)
	if !ok {
		return nil
	}
	return identity
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
// Store internals never reach the client verbatim.
func writeDomainError(w http.ResponseWriter, err error, resource string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, resource+" not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, resource+" conflict")
	case errors.Is(err, services.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrUserInactive):
		writeError(w, http.StatusForbidden, "user is not active")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, services.ErrCoverStorage):
		writeError(w, http.StatusServiceUnavailable, "cover storage is not configured")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
