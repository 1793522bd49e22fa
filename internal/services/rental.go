package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/booklend/apiserver/internal/store"
	"github.com/booklend/apiserver/types"
	"go.uber.org/zap"
)

// RentalRepository defines persistence operations for rentals.
type RentalRepository interface {
	List(ctx context.Context) ([]types.Rental, error)
	ListByUser(ctx context.Context, userID string) ([]types.Rental, error)
	Get(ctx context.Context, id string) (types.Rental, error)
	GetActiveByBook(ctx context.Context, bookID string) (types.Rental, error)
	Create(ctx context.Context, rental types.Rental) (types.Rental, error)
	Update(ctx context.Context, rental types.Rental) (types.Rental, error)
	Delete(ctx context.Context, id string) error
}

// BookLookup is the slice of the book repository the rental service needs.
type BookLookup interface {
	Get(ctx context.Context, id string) (types.Book, error)
}

// RentalService owns the rental lifecycle: a book moves Available → Rented on
// checkout and back on return or cancellation. The one-active-rental-per-book
// invariant is checked here and enforced by the store's partial unique index,
// so a concurrent double-checkout loses with store.ErrConflict.
type RentalService struct {
	repo   RentalRepository
	books  BookLookup
	events *EventPublisher
	logger *zap.Logger
}

func NewRentalService(repo RentalRepository, books BookLookup, events *EventPublisher, logger *zap.Logger) *RentalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RentalService{repo: repo, books: books, events: events, logger: logger}
}

// Checkout opens a rental for the calling identity. The renting user is
// always the caller; a user id supplied by the client is ignored. A zero
// rentedAt defaults to now.
func (s *RentalService) Checkout(ctx context.Context, identity types.Identity, bookID string, rentedAt time.Time) (types.Rental, error) {
	if bookID == "" {
		return types.Rental{}, fmt.Errorf("%w: book_id is required", ErrValidation)
	}

	if _, err := s.books.Get(ctx, bookID); err != nil {
		return types.Rental{}, err
	}

	if _, err := s.repo.GetActiveByBook(ctx, bookID); err == nil {
		return types.Rental{}, store.ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Rental{}, err
	}

	rental, err := s.repo.Create(ctx, types.Rental{
		BookID:   bookID,
		UserID:   identity.ID,
		RentedAt: rentedAt,
	})
	if err != nil {
		return types.Rental{}, err
	}

	s.logger.Info("checked out book",
		zap.String("rental_id", rental.ID),
		zap.String("book_id", rental.BookID),
		zap.String("user_id", rental.UserID),
	)
	s.events.Publish(ctx, EventRentalCheckedOut, rental)
	return rental, nil
}

// Return closes an active rental. The return date must not precede the
// rental date.
func (s *RentalService) Return(ctx context.Context, rentalID string, returnedAt time.Time) (types.Rental, error) {
	rental, err := s.repo.Get(ctx, rentalID)
	if err != nil {
		return types.Rental{}, err
	}

	if !rental.Active() {
		return types.Rental{}, fmt.Errorf("%w: rental is already returned", ErrValidation)
	}
	if returnedAt.IsZero() {
		returnedAt = time.Now()
	}
	if returnedAt.Before(rental.RentedAt) {
		return types.Rental{}, fmt.Errorf("%w: returned_at precedes rented_at", ErrValidation)
	}

	rental.ReturnedAt = &returnedAt
	updated, err := s.repo.Update(ctx, rental)
	if err != nil {
		return types.Rental{}, err
	}

	s.logger.Info("returned book",
		zap.String("rental_id", updated.ID),
		zap.String("book_id", updated.BookID),
	)
	s.events.Publish(ctx, EventRentalReturned, updated)
	return updated, nil
}

// RentalAmendment carries the mutable rental fields. Nil fields are left
// as-is. ReturnedAt distinguishes absent from explicit null through the
// Clear flag.
type RentalAmendment struct {
	BookID          *string
	RentedAt        *time.Time
	ReturnedAt      *time.Time
	ClearReturnedAt bool
}

// Amend applies a generic update. Moving a rental to another book or
// re-opening it re-checks the target book for an active rental, so the
// one-active-rental invariant survives this path too.
func (s *RentalService) Amend(ctx context.Context, rentalID string, amendment RentalAmendment) (types.Rental, error) {
	rental, err := s.repo.Get(ctx, rentalID)
	if err != nil {
		return types.Rental{}, err
	}

	bookChanged := amendment.BookID != nil && *amendment.BookID != rental.BookID
	if bookChanged {
		if _, err := s.books.Get(ctx, *amendment.BookID); err != nil {
			return types.Rental{}, err
		}
		rental.BookID = *amendment.BookID
	}
	if amendment.RentedAt != nil {
		rental.RentedAt = *amendment.RentedAt
	}
	if amendment.ClearReturnedAt {
		rental.ReturnedAt = nil
	} else if amendment.ReturnedAt != nil {
		rental.ReturnedAt = amendment.ReturnedAt
	}

	if rental.ReturnedAt != nil && rental.ReturnedAt.Before(rental.RentedAt) {
		return types.Rental{}, fmt.Errorf("%w: returned_at precedes rented_at", ErrValidation)
	}

	if rental.Active() && (bookChanged || amendment.ClearReturnedAt) {
		active, err := s.repo.GetActiveByBook(ctx, rental.BookID)
		if err == nil && active.ID != rental.ID {
			return types.Rental{}, store.ErrConflict
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return types.Rental{}, err
		}
	}

	return s.repo.Update(ctx, rental)
}

// Cancel removes the rental record entirely.
func (s *RentalService) Cancel(ctx context.Context, rentalID string) error {
	rental, err := s.repo.Get(ctx, rentalID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, rentalID); err != nil {
		return err
	}

	s.logger.Info("canceled rental", zap.String("rental_id", rentalID))
	s.events.Publish(ctx, EventRentalCanceled, rental)
	return nil
}

func (s *RentalService) List(ctx context.Context) ([]types.Rental, error) {
	return s.repo.List(ctx)
}

func (s *RentalService) ListByUser(ctx context.Context, userID string) ([]types.Rental, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *RentalService) Get(ctx context.Context, id string) (types.Rental, error) {
	return s.repo.Get(ctx, id)
}
