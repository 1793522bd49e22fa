package services

import (
	"context"
	"time"

	"github.com/booklend/apiserver/internal/store"
	"github.com/booklend/apiserver/types"
	"github.com/google/uuid"
)

// fakeRentalRepo mirrors the store contract in memory, including the
// one-open-rental-per-book unique index.
type fakeRentalRepo struct {
	rentals map[string]types.Rental
}

func newFakeRentalRepo() *fakeRentalRepo {
	return &fakeRentalRepo{rentals: make(map[string]types.Rental)}
}

func (r *fakeRentalRepo) List(ctx context.Context) ([]types.Rental, error) {
	rentals := make([]types.Rental, 0, len(r.rentals))
	for _, rental := range r.rentals {
		rentals = append(rentals, rental)
	}
	return rentals, nil
}

func (r *fakeRentalRepo) ListByUser(ctx context.Context, userID string) ([]types.Rental, error) {
	rentals := make([]types.Rental, 0)
	for _, rental := range r.rentals {
		if rental.UserID == userID {
			rentals = append(rentals, rental)
		}
	}
	return rentals, nil
}

func (r *fakeRentalRepo) Get(ctx context.Context, id string) (types.Rental, error) {
	rental, ok := r.rentals[id]
	if !ok {
		return types.Rental{}, store.ErrNotFound
	}
	return rental, nil
}

func (r *fakeRentalRepo) GetActiveByBook(ctx context.Context, bookID string) (types.Rental, error) {
	for _, rental := range r.rentals {
		if rental.BookID == bookID && rental.Active() {
			return rental, nil
		}
	}
	return types.Rental{}, store.ErrNotFound
}

func (r *fakeRentalRepo) Create(ctx context.Context, rental types.Rental) (types.Rental, error) {
	if rental.ReturnedAt == nil {
		if _, err := r.GetActiveByBook(ctx, rental.BookID); err == nil {
			return types.Rental{}, store.ErrConflict
		}
	}
	now := time.Now()
	rental.ID = uuid.NewString()
	rental.CreatedAt = now
	rental.UpdatedAt = now
	if rental.RentedAt.IsZero() {
		rental.RentedAt = now
	}
	r.rentals[rental.ID] = rental
	return rental, nil
}

func (r *fakeRentalRepo) Update(ctx context.Context, rental types.Rental) (types.Rental, error) {
	if _, ok := r.rentals[rental.ID]; !ok {
		return types.Rental{}, store.ErrNotFound
	}
	if rental.ReturnedAt == nil {
		if active, err := r.GetActiveByBook(ctx, rental.BookID); err == nil && active.ID != rental.ID {
			return types.Rental{}, store.ErrConflict
		}
	}
	rental.UpdatedAt = time.Now()
	r.rentals[rental.ID] = rental
	return rental, nil
}

func (r *fakeRentalRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.rentals[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.rentals, id)
	return nil
}

type fakeBookLookup struct {
	books map[string]types.Book
}

func newFakeBookLookup(books ...types.Book) *fakeBookLookup {
	lookup := &fakeBookLookup{books: make(map[string]types.Book)}
	for _, book := range books {
		lookup.books[book.ID] = book
	}
	return lookup
}

func (l *fakeBookLookup) Get(ctx context.Context, id string) (types.Book, error) {
	book, ok := l.books[id]
	if !ok {
		return types.Book{}, store.ErrNotFound
	}
	return book, nil
}

type fakeUserRepo struct {
	users map[string]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]types.User)}
}

func (r *fakeUserRepo) List(ctx context.Context) ([]types.User, error) {
	users := make([]types.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	return users, nil
}

func (r *fakeUserRepo) Get(ctx context.Context, id string) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByName(ctx context.Context, name string) (types.User, error) {
	for _, user := range r.users {
		if user.Name == name {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	if _, err := r.GetByEmail(ctx, user.Email); err == nil {
		return types.User{}, store.ErrConflict
	}
	if _, err := r.GetByName(ctx, user.Name); err == nil {
		return types.User{}, store.ErrConflict
	}
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	if _, ok := r.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, id)
	return nil
}
