package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/booklend/apiserver/internal/services"
	"github.com/booklend/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// AuthorHandler provides HTTP handlers for authors.
type AuthorHandler struct {
	authorService *services.AuthorService
}

func NewAuthorHandler(authorService *services.AuthorService) *AuthorHandler {
	return &AuthorHandler{authorService: authorService}
}

// AuthorRouter registers author routes. Reads are open; mutation requires a
// superuser token.
func AuthorRouter(r chi.Router, authorService *services.AuthorService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewAuthorHandler(authorService)

	r.Get("/", handler.ListAuthors)
	r.With(authMiddleware, requireSuperuser).Post("/", handler.CreateAuthor)
	r.Route("/{authorID}", func(r chi.Router) {
		r.Get("/", handler.GetAuthor)
		r.With(authMiddleware, requireSuperuser).Put("/", handler.UpdateAuthor)
		r.With(authMiddleware, requireSuperuser).Delete("/", handler.DeleteAuthor)
	})
}

// ListAuthors lists all authors. When ?id= or ?name= is supplied a single
// author is returned instead; id wins when both are present.
func (h *AuthorHandler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	if id := strings.TrimSpace(r.URL.Query().Get("id")); id != "" {
		author, err := h.authorService.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err, "author")
			return
		}
		writeJSON(w, http.StatusOK, author)
		return
	}
	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		author, err := h.authorService.GetByName(r.Context(), name)
		if err != nil {
			writeDomainError(w, err, "author")
			return
		}
		writeJSON(w, http.StatusOK, author)
		return
	}

	authors, err := h.authorService.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "author")
		return
	}
	writeJSON(w, http.StatusOK, authors)
}

func (h *AuthorHandler) GetAuthor(w http.ResponseWriter, r *http.Request) {
	author, err := h.authorService.Get(r.Context(), chi.URLParam(r, "authorID"))
	if err != nil {
		writeDomainError(w, err, "author")
		return
	}
	writeJSON(w, http.StatusOK, author)
}

func (h *AuthorHandler) CreateAuthor(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAuthorRequest(w, r)
	if !ok {
		return
	}

	created, err := h.authorService.Create(r.Context(), types.Author{Name: req.Name})
	if err != nil {
		writeDomainError(w, err, "author")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *AuthorHandler) UpdateAuthor(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAuthorRequest(w, r)
	if !ok {
		return
	}

	updated, err := h.authorService.Update(r.Context(), types.Author{
		ID:   chi.URLParam(r, "authorID"),
		Name: req.Name,
	})
	if err != nil {
		writeDomainError(w, err, "author")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *AuthorHandler) DeleteAuthor(w http.ResponseWriter, r *http.Request) {
	if err := h.authorService.Delete(r.Context(), chi.URLParam(r, "authorID")); err != nil {
		writeDomainError(w, err, "author")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AuthorRequest is the author create/update payload.
type AuthorRequest struct {
	Name string `json:"name"`
}

func decodeAuthorRequest(w http.ResponseWriter, r *http.Request) (AuthorRequest, bool) {
	var req AuthorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return AuthorRequest{}, false
	}
	req.Name = strings.TrimSpace(req.Name)
	return req, true
}
