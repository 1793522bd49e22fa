package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/booklend/apiserver/internal/storage"
	"github.com/booklend/apiserver/internal/store"
	"github.com/booklend/apiserver/types"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ErrCoverStorage is returned when no cover storage backend is configured.
var ErrCoverStorage = errors.New("cover storage is not configured")

// BookRepository defines persistence operations for books.
type BookRepository interface {
	List(ctx context.Context) ([]types.Book, error)
	Get(ctx context.Context, id string) (types.Book, error)
	GetByName(ctx context.Context, name string) (types.Book, error)
	Create(ctx context.Context, book types.Book) (types.Book, error)
	Update(ctx context.Context, book types.Book) (types.Book, error)
	Delete(ctx context.Context, id string) error
}

// BookService encapsulates book use-cases, including cover image storage.
type BookService struct {
	repo   BookRepository
	covers *storage.Storage
}

// NewBookService constructs a BookService. covers may be nil when cover
// storage is disabled.
func NewBookService(repo BookRepository, covers *storage.Storage) *BookService {
	return &BookService{repo: repo, covers: covers}
}

func (s *BookService) List(ctx context.Context) ([]types.Book, error) {
	return s.repo.List(ctx)
}

func (s *BookService) Get(ctx context.Context, id string) (types.Book, error) {
	return s.repo.Get(ctx, id)
}

func (s *BookService) GetByName(ctx context.Context, name string) (types.Book, error) {
	return s.repo.GetByName(ctx, name)
}

func (s *BookService) Create(ctx context.Context, book types.Book) (types.Book, error) {
	if err := validation.Validate(book.Name, validation.Required); err != nil {
		return types.Book{}, fmt.Errorf("%w: name: %v", ErrValidation, err)
	}
	return s.repo.Create(ctx, book)
}

func (s *BookService) Update(ctx context.Context, book types.Book) (types.Book, error) {
	if err := validation.Validate(book.Name, validation.Required); err != nil {
		return types.Book{}, fmt.Errorf("%w: name: %v", ErrValidation, err)
	}
	return s.repo.Update(ctx, book)
}

// Delete removes the book and, by cascade, its rentals. Any stored cover is
// removed best-effort.
func (s *BookService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.covers != nil {
		_ = s.covers.Delete(ctx, coverKey(id))
	}
	return nil
}

// UploadCover stores a cover image for the book. The book must exist.
func (s *BookService) UploadCover(ctx context.Context, bookID string, r io.Reader, size int64, contentType string) error {
	if s.covers == nil {
		return ErrCoverStorage
	}
	if _, err := s.repo.Get(ctx, bookID); err != nil {
		return err
	}
	return s.covers.Put(ctx, coverKey(bookID), r, size, contentType)
}

// OpenCover streams the stored cover image for the book, along with the
// content type it was uploaded with. A book without a cover yields
// store.ErrNotFound.
func (s *BookService) OpenCover(ctx context.Context, bookID string) (io.ReadCloser, string, error) {
	if s.covers == nil {
		return nil, "", ErrCoverStorage
	}
	if _, err := s.repo.Get(ctx, bookID); err != nil {
		return nil, "", err
	}

	reader, contentType, err := s.covers.Get(ctx, coverKey(bookID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", store.ErrNotFound
		}
		return nil, "", err
	}
	return reader, contentType, nil
}

func coverKey(bookID string) string {
	return "covers/" + bookID
}
