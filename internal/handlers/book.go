package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/booklend/apiserver/internal/services"
	"github.com/booklend/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	maxCoverMemory   = 8 << 20
	maxCoverBytes    = 8 << 20
	formFieldCover   = "cover"
	defaultCoverType = "application/octet-stream"
)

// BookHandler provides HTTP handlers for books and their cover images.
type BookHandler struct {
	bookService *services.BookService
}

func NewBookHandler(bookService *services.BookService) *BookHandler {
	return &BookHandler{bookService: bookService}
}

// BookRouter registers book routes. Reads are open; mutation requires a
// superuser token.
func BookRouter(r chi.Router, bookService *services.BookService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewBookHandler(bookService)

	r.Get("/", handler.ListBooks)
	r.With(authMiddleware, requireSuperuser).Post("/", handler.CreateBook)
	r.Route("/{bookID}", func(r chi.Router) {
		r.Get("/", handler.GetBook)
		r.With(authMiddleware, requireSuperuser).Put("/", handler.UpdateBook)
		r.With(authMiddleware, requireSuperuser).Delete("/", handler.DeleteBook)
		r.Get("/cover", handler.GetCover)
		r.With(authMiddleware, requireSuperuser).Put("/cover", handler.UploadCover)
	})
}

// ListBooks lists all books. When ?id= or ?name= is supplied a single book
// is returned instead; id wins when both are present.
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	if id := strings.TrimSpace(r.URL.Query().Get("id")); id != "" {
		book, err := h.bookService.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err, "book")
			return
		}
		writeJSON(w, http.StatusOK, book)
		return
	}
	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		book, err := h.bookService.GetByName(r.Context(), name)
		if err != nil {
			writeDomainError(w, err, "book")
			return
		}
		writeJSON(w, http.StatusOK, book)
		return
	}

	books, err := h.bookService.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "book")
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.bookService.Get(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		writeDomainError(w, err, "book")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBookRequest(w, r)
	if !ok {
		return
	}

	created, err := h.bookService.Create(r.Context(), types.Book{
		Name:      req.Name,
		WrittenAt: req.WrittenAt,
		AuthorID:  req.AuthorID,
		LibraryID: req.LibraryID,
	})
	if err != nil {
		writeDomainError(w, err, "book")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBookRequest(w, r)
	if !ok {
		return
	}

	updated, err := h.bookService.Update(r.Context(), types.Book{
		ID:        chi.URLParam(r, "bookID"),
		Name:      req.Name,
		WrittenAt: req.WrittenAt,
		AuthorID:  req.AuthorID,
		LibraryID: req.LibraryID,
	})
	if err != nil {
		writeDomainError(w, err, "book")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.bookService.Delete(r.Context(), chi.URLParam(r, "bookID")); err != nil {
		writeDomainError(w, err, "book")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadCover accepts a multipart "cover" file and stores it for the book.
func (h *BookHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxCoverMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := coverFile(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultCoverType
	}

	limited := io.LimitReader(file, maxCoverBytes)
	if err := h.bookService.UploadCover(r.Context(), chi.URLParam(r, "bookID"), limited, header.Size, contentType); err != nil {
		writeDomainError(w, err, "book")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetCover streams the stored cover image for the book, echoing the content
// type recorded at upload.
func (h *BookHandler) GetCover(w http.ResponseWriter, r *http.Request) {
	reader, contentType, err := h.bookService.OpenCover(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		writeDomainError(w, err, "cover")
		return
	}
	defer reader.Close()

	if contentType == "" {
		contentType = defaultCoverType
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

// BookRequest is the book create/update payload.
type BookRequest struct {
	Name      string     `json:"name"`
	WrittenAt *time.Time `json:"written_at"`
	AuthorID  *string    `json:"author_id"`
	LibraryID *string    `json:"library_id"`
}

func decodeBookRequest(w http.ResponseWriter, r *http.Request) (BookRequest, bool) {
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return BookRequest{}, false
	}
	req.Name = strings.TrimSpace(req.Name)
	return req, true
}

func coverFile(form *multipart.Form) (multipart.File, *multipart.FileHeader, error) {
	if form == nil {
		return nil, nil, errors.New("missing form data")
	}

	files := form.File[formFieldCover]
	if len(files) == 0 {
		return nil, nil, errors.New("cover file is required")
	}
	if len(files) > 1 {
		return nil, nil, errors.New("only one cover file is allowed")
	}
	if files[0].Size > maxCoverBytes {
		return nil, nil, errors.New("cover file too large")
	}

	file, err := files[0].Open()
	if err != nil {
		return nil, nil, errors.New("failed to read cover file")
	}
	return file, files[0], nil
}
