package services

import (
	"context"
	"fmt"

	"github.com/booklend/apiserver/types"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// LibraryRepository defines persistence operations for library branches.
type LibraryRepository interface {
	List(ctx context.Context) ([]types.Library, error)
	Get(ctx context.Context, id string) (types.Library, error)
	GetByCity(ctx context.Context, city string) ([]types.Library, error)
	Create(ctx context.Context, library types.Library) (types.Library, error)
	Update(ctx context.Context, library types.Library) (types.Library, error)
	Delete(ctx context.Context, id string) error
}

// LibraryService encapsulates library use-cases.
type LibraryService struct {
	repo LibraryRepository
}

func NewLibraryService(repo LibraryRepository) *LibraryService {
	return &LibraryService{repo: repo}
}

func (s *LibraryService) List(ctx context.Context) ([]types.Library, error) {
	return s.repo.List(ctx)
}

func (s *LibraryService) Get(ctx context.Context, id string) (types.Library, error) {
	return s.repo.Get(ctx, id)
}

func (s *LibraryService) GetByCity(ctx context.Context, city string) ([]types.Library, error) {
	return s.repo.GetByCity(ctx, city)
}

func (s *LibraryService) Create(ctx context.Context, library types.Library) (types.Library, error) {
	if err := validateLibrary(library); err != nil {
		return types.Library{}, err
	}
	return s.repo.Create(ctx, library)
}

func (s *LibraryService) Update(ctx context.Context, library types.Library) (types.Library, error) {
	if err := validateLibrary(library); err != nil {
		return types.Library{}, err
	}
	return s.repo.Update(ctx, library)
}

// Delete removes the library and, by cascade, its books.
func (s *LibraryService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func validateLibrary(library types.Library) error {
	err := validation.ValidateStruct(&library,
		validation.Field(&library.Name, validation.Required),
		validation.Field(&library.City, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
