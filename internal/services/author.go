package services

import (
	"context"
	"fmt"

	"github.com/booklend/apiserver/types"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// AuthorRepository defines persistence operations for authors.
type AuthorRepository interface {
	List(ctx context.Context) ([]types.Author, error)
	Get(ctx context.Context, id string) (types.Author, error)
	GetByName(ctx context.Context, name string) (types.Author, error)
	Create(ctx context.Context, author types.Author) (types.Author, error)
	Update(ctx context.Context, author types.Author) (types.Author, error)
	Delete(ctx context.Context, id string) error
}

// AuthorService encapsulates author use-cases.
type AuthorService struct {
	repo AuthorRepository
}

func NewAuthorService(repo AuthorRepository) *AuthorService {
	return &AuthorService{repo: repo}
}

func (s *AuthorService) List(ctx context.Context) ([]types.Author, error) {
	return s.repo.List(ctx)
}

func (s *AuthorService) Get(ctx context.Context, id string) (types.Author, error) {
	return s.repo.Get(ctx, id)
}

func (s *AuthorService) GetByName(ctx context.Context, name string) (types.Author, error) {
	return s.repo.GetByName(ctx, name)
}

func (s *AuthorService) Create(ctx context.Context, author types.Author) (types.Author, error) {
	if err := validation.Validate(author.Name, validation.Required); err != nil {
		return types.Author{}, fmt.Errorf("%w: name: %v", ErrValidation, err)
	}
	return s.repo.Create(ctx, author)
}

func (s *AuthorService) Update(ctx context.Context, author types.Author) (types.Author, error) {
	if err := validation.Validate(author.Name, validation.Required); err != nil {
		return types.Author{}, fmt.Errorf("%w: name: %v", ErrValidation, err)
	}
	return s.repo.Update(ctx, author)
}

// Delete removes the author and, by cascade, its books.
func (s *AuthorService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
