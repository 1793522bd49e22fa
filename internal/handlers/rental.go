package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/booklend/apiserver/internal/policy"
	"github.com/booklend/apiserver/internal/services"
	"github.com/booklend/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// RentalHandler provides HTTP handlers for rentals. Every route requires an
// authenticated identity; visibility and mutation are owner-or-superuser.
type RentalHandler struct {
	rentalService *services.RentalService
}

func NewRentalHandler(rentalService *services.RentalService) *RentalHandler {
	return &RentalHandler{rentalService: rentalService}
}

// RentalRouter registers rental routes behind the auth middleware.
func RentalRouter(r chi.Router, rentalService *services.RentalService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewRentalHandler(rentalService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListRentals)
	r.Post("/", handler.CreateRental)
	r.Route("/{rentalID}", func(r chi.Router) {
		r.Get("/", handler.GetRental)
		r.Put("/", handler.AmendRental)
		r.Post("/return", handler.ReturnRental)
		r.Delete("/", handler.CancelRental)
	})
}

// ListRentals returns the caller's rentals, or all rentals for a superuser.
// A superuser may narrow with ?user_id=; ?id= fetches a single rental.
func (h *RentalHandler) ListRentals(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if id := strings.TrimSpace(r.URL.Query().Get("id")); id != "" {
		h.getRental(w, r, identity, id)
		return
	}

	userID := identity.ID
	if identity.IsSuperuser {
		userID = strings.TrimSpace(r.URL.Query().Get("user_id"))
	}

	var (
		rentals []types.Rental
		err     error
	)
	if userID == "" {
		rentals, err = h.rentalService.List(r.Context())
	} else {
		rentals, err = h.rentalService.ListByUser(r.Context(), userID)
	}
	if err != nil {
		writeDomainError(w, err, "rental")
		return
	}
	writeJSON(w, http.StatusOK, rentals)
}

func (h *RentalHandler) GetRental(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.getRental(w, r, identity, chi.URLParam(r, "rentalID"))
}

func (h *RentalHandler) getRental(w http.ResponseWriter, r *http.Request, identity *types.Identity, id string) {
	rental, err := h.rentalService.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "rental")
		return
	}
	if !policy.Allow(identity, policy.ActionRead, policy.Resource{Kind: policy.KindRental, OwnerID: rental.UserID}) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

// CreateRental checks out a book for the calling identity. Any user_id in
// the body is ignored; the renting user is always the caller.
func (h *RentalHandler) CreateRental(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RentalCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	var rentedAt time.Time
	if req.RentedAt != nil {
		rentedAt = *req.RentedAt
	}

	rental, err := h.rentalService.Checkout(r.Context(), *identity, strings.TrimSpace(req.BookID), rentedAt)
	if err != nil {
		writeDomainError(w, err, "rental")
		return
	}
	writeJSON(w, http.StatusCreated, rental)
}

// ReturnRental closes an active rental owned by the caller.
func (h *RentalHandler) ReturnRental(w http.ResponseWriter, r *http.Request) {
	_, rental, ok := h.authorizeMutation(w, r, policy.ActionUpdate)
	if !ok {
		return
	}

	// An empty body means "return now".
	var req RentalReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	var returnedAt time.Time
	if req.ReturnedAt != nil {
		returnedAt = *req.ReturnedAt
	}

	updated, err := h.rentalService.Return(r.Context(), rental.ID, returnedAt)
	if err != nil {
		writeDomainError(w, err, "rental")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// AmendRental applies a partial update to the rental's book and dates.
func (h *RentalHandler) AmendRental(w http.ResponseWriter, r *http.Request) {
	_, rental, ok := h.authorizeMutation(w, r, policy.ActionUpdate)
	if !ok {
		return
	}

	var req RentalAmendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.rentalService.Amend(r.Context(), rental.ID, services.RentalAmendment{
		BookID:          req.BookID,
		RentedAt:        req.RentedAt,
		ReturnedAt:      req.ReturnedAt,
		ClearReturnedAt: req.ClearReturnedAt,
	})
	if err != nil {
		writeDomainError(w, err, "rental")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// CancelRental removes the rental record. Owner or superuser only.
func (h *RentalHandler) CancelRental(w http.ResponseWriter, r *http.Request) {
	_, rental, ok := h.authorizeMutation(w, r, policy.ActionDelete)
	if !ok {
		return
	}

	if err := h.rentalService.Cancel(r.Context(), rental.ID); err != nil {
		writeDomainError(w, err, "rental")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authorizeMutation loads the target rental and checks the policy table
// against the rental's owning user.
func (h *RentalHandler) authorizeMutation(w http.ResponseWriter, r *http.Request, action policy.Action) (*types.Identity, types.Rental, bool) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, types.Rental{}, false
	}

	rental, err := h.rentalService.Get(r.Context(), chi.URLParam(r, "rentalID"))
	if err != nil {
		writeDomainError(w, err, "rental")
		return nil, types.Rental{}, false
	}

	if !policy.Allow(identity, action, policy.Resource{Kind: policy.KindRental, OwnerID: rental.UserID}) {
		writeError(w, http.StatusForbidden, "forbidden")
		return nil, types.Rental{}, false
	}
	return identity, rental, true
}

// RentalCreateRequest is the checkout payload. user_id is accepted for
// compatibility but ignored.
type RentalCreateRequest struct {
	BookID   string     `json:"book_id"`
	UserID   string     `json:"user_id"`
	RentedAt *time.Time `json:"rented_at"`
}

type RentalReturnRequest struct {
	ReturnedAt *time.Time `json:"returned_at"`
}

type RentalAmendRequest struct {
	BookID          *string    `json:"book_id"`
	RentedAt        *time.Time `json:"rented_at"`
	ReturnedAt      *time.Time `json:"returned_at"`
	ClearReturnedAt bool       `json:"clear_returned_at"`
}
