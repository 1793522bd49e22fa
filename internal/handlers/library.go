package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/booklend/apiserver/internal/services"
	"github.com/booklend/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// LibraryHandler provides HTTP handlers for library branches.
type LibraryHandler struct {
	libraryService *services.LibraryService
}

func NewLibraryHandler(libraryService *services.LibraryService) *LibraryHandler {
	return &LibraryHandler{libraryService: libraryService}
}

// LibraryRouter registers library routes. Reads are open; mutation requires
// a superuser token.
func LibraryRouter(r chi.Router, libraryService *services.LibraryService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewLibraryHandler(libraryService)

	r.Get("/", handler.ListLibraries)
	r.With(authMiddleware, requireSuperuser).Post("/", handler.CreateLibrary)
	r.Route("/{libraryID}", func(r chi.Router) {
		r.Get("/", handler.GetLibrary)
		r.With(authMiddleware, requireSuperuser).Put("/", handler.UpdateLibrary)
		r.With(authMiddleware, requireSuperuser).Delete("/", handler.DeleteLibrary)
	})
}

// ListLibraries lists all libraries. ?id= fetches one; ?city= filters by
// city; id wins when both are present.
func (h *LibraryHandler) ListLibraries(w http.ResponseWriter, r *http.Request) {
	if id := strings.TrimSpace(r.URL.Query().Get("id")); id != "" {
		library, err := h.libraryService.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err, "library")
			return
		}
		writeJSON(w, http.StatusOK, library)
		return
	}
	if city := strings.TrimSpace(r.URL.Query().Get("city")); city != "" {
		libraries, err := h.libraryService.GetByCity(r.Context(), city)
		if err != nil {
			writeDomainError(w, err, "library")
			return
		}
		writeJSON(w, http.StatusOK, libraries)
		return
	}

	libraries, err := h.libraryService.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "library")
		return
	}
	writeJSON(w, http.StatusOK, libraries)
}

func (h *LibraryHandler) GetLibrary(w http.ResponseWriter, r *http.Request) {
	library, err := h.libraryService.Get(r.Context(), chi.URLParam(r, "libraryID"))
	if err != nil {
		writeDomainError(w, err, "library")
		return
	}
	writeJSON(w, http.StatusOK, library)
}

func (h *LibraryHandler) CreateLibrary(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLibraryRequest(w, r)
	if !ok {
		return
	}

	created, err := h.libraryService.Create(r.Context(), types.Library{
		Name: req.Name,
		City: req.City,
	})
	if err != nil {
		writeDomainError(w, err, "library")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *LibraryHandler) UpdateLibrary(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLibraryRequest(w, r)
	if !ok {
		return
	}

	updated, err := h.libraryService.Update(r.Context(), types.Library{
		ID:   chi.URLParam(r, "libraryID"),
		Name: req.Name,
		City: req.City,
	})
	if err != nil {
		writeDomainError(w, err, "library")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *LibraryHandler) DeleteLibrary(w http.ResponseWriter, r *http.Request) {
	if err := h.libraryService.Delete(r.Context(), chi.URLParam(r, "libraryID")); err != nil {
		writeDomainError(w, err, "library")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LibraryRequest is the library create/update payload.
type LibraryRequest struct {
	Name string `json:"name"`
	City string `json:"city"`
}

func decodeLibraryRequest(w http.ResponseWriter, r *http.Request) (LibraryRequest, bool) {
	var req LibraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return LibraryRequest{}, false
	}
	req.Name = strings.TrimSpace(req.Name)
	req.City = strings.TrimSpace(req.City)
	return req, true
}
