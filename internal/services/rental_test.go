package services

import (
	"context"
	"testing"
	"time"

	"github.com/booklend/apiserver/internal/store"
	"github.com/booklend/apiserver/types"
	"github.com/stretchr/testify/require"
)

func initRentalTest(t *testing.T, books ...types.Book) (context.Context, *fakeRentalRepo, *RentalService) {
	t.Helper()
	repo := newFakeRentalRepo()
	svc := NewRentalService(repo, newFakeBookLookup(books...), nil, nil)
	return context.Background(), repo, svc
}

func TestCheckout(t *testing.T) {
	t.Parallel()

	book := types.Book{ID: "book-1", Name: "The Go Programming Language"}
	caller := types.Identity{ID: "user-1", Email: "reader@example.com"}

	t.Run("opens rental for the caller", func(t *testing.T) {
		t.Parallel()
		ctx, _, svc := initRentalTest(t, book)

		rental, err := svc.Checkout(ctx, caller, book.ID, time.Time{})
		require.NoError(t, err)
		require.NotEmpty(t, rental.ID)
		require.Equal(t, book.ID, rental.BookID)
		require.Equal(t, caller.ID, rental.UserID)
		require.False(t, rental.RentedAt.IsZero())
		require.True(t, rental.Active())
	})

	t.Run("rejects empty book id", func(t *testing.T) {
		t.Parallel()
		ctx, _, svc := initRentalTest(t, book)

		_, err := svc.Checkout(ctx, caller, "", time.Time{})
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown book", func(t *testing.T) {
		t.Parallel()
		ctx, _, svc := initRentalTest(t, book)

		_, err := svc.Checkout(ctx, caller, "no-such-book", time.Time{})
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("book already rented", func(t *testing.T) {
		t.Parallel()
		ctx, _, svc := initRentalTest(t, book)

		_, err := svc.Checkout(ctx, caller, book.ID, time.Time{})
		require.NoError(t, err)

		other := types.Identity{ID: "user-2"}
		_, err = svc.Checkout(ctx, other, book.ID, time.Time{})
		require.ErrorIs(t, err, store.ErrConflict)
	})

	t.Run("rentable again after return", func(t *testing.T) {
		t.Parallel()
		ctx, _, svc := initRentalTest(t, book)

		rental, err := svc.Checkout(ctx, caller, book.ID, time.Time{})
		require.NoError(t, err)
		_, err = svc.Return(ctx, rental.ID, time.Time{})
		require.NoError(t, err)

		_, err = svc.Checkout(ctx, types.Identity{ID: "user-2"}, book.ID, time.Time{})
		require.NoError(t, err)
	})
}

func TestReturn(t *testing.T) {
	t.Parallel()

	book := types.Book{ID: "book-1", Name: "The Go Programming Language"}
	caller := types.Identity{ID: "user-1"}
	rentedAt := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	t.Run("closes rental", func(t *testing.T) {
		t.Parallel()
		ctx, _, svc := initRentalTest(t, book)

		rental, err := svc.Checkout(ctx, caller, book.ID, rentedAt)
		require.NoError(t, err)

		returnedAt := rentedAt.Add(48 * time.Hour)
		returned, err := svc.Return(ctx, rental.ID, returnedAt)
		require.NoError(t, err)
		require.NotNil(t, returned.ReturnedAt)
		require.True(t, returned.ReturnedAt.Equal(returnedAt))
		require.False(t, returned.Active())
	})

	t.Run("defaults return date to now", func(t *testing.T) {
		t.Parallel()
		ctx, _, svc := initRentalTest(t, book)

		rental, err := svc.Checkout(ctx, caller, book.ID, time.Time{})
		require.NoError(t, err)

		returned, err := svc.Return(ctx, rental.ID, time.Time{})
		require.NoError(t, err)
		require.NotNil(t, returned.ReturnedAt)
	})

	t.Run("return date before rental date", func(t *testing.T) {
		t.Parallel()
		ctx, _, svc := initRentalTest(t, book)

		rental, err := svc.Checkout(ctx, caller, book.ID, rentedAt)
		require.NoError(t, err)

		_, err = svc.Return(ctx, rental.ID, rentedAt.Add(-time.Hour))
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("already returned", func(t *testing.T) {
		t.Parallel()
		ctx, _, svc := initRentalTest(t, book)

		rental, err := svc.Checkout(ctx, caller, book.ID, rentedAt)
		require.NoError(t, err)
		_, err = svc.Return(ctx, rental.ID, time.Time{})
		require.NoError(t, err)

		_, err = svc.Return(ctx, rental.ID, time.Time{})
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown rental", func(t *testing.T) {
		t.Parallel()
		ctx, _, svc := initRentalTest(t, book)

		_, err := svc.Return(ctx, "no-such-rental", time.Time{})
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestAmend(t *testing.T) {
	t.Parallel()

	bookA := types.Book{ID: "book-a", Name: "A"}
	bookB := types.Book{ID: "book-b", Name: "B"}
	caller := types.Identity{ID: "user-1"}
	rentedAt := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	t.Run("moves rental to a free book", func(t *testing.T) {
		t.Parallel()
		ctx, _, svc := initRentalTest(t, bookA, bookB)

		rental, err := svc.Checkout(ctx, caller, bookA.ID, rentedAt)
		require.NoError(t, err)

		amended, err := svc.Amend(ctx, rental.ID, RentalAmendment{BookID: &bookB.ID})
		require.NoError(t, err)
		require.Equal(t, bookB.ID, amended.BookID)
	})

	t.Run("cannot move onto a rented book", func(t *testing.T) {
		t.Parallel()
		ctx, _, svc := initRentalTest(t, bookA, bookB)

		rental, err := svc.Checkout(ctx, caller, bookA.ID, rentedAt)
		require.NoError(t, err)
		_, err = svc.Checkout(ctx, types.Identity{ID: "user-2"}, bookB.ID, rentedAt)
		require.NoError(t, err)

		_, err = svc.Amend(ctx, rental.ID, RentalAmendment{BookID: &bookB.ID})
		require.ErrorIs(t, err, store.ErrConflict)
	})

	t.Run("cannot re-open while the book is rented", func(t *testing.T) {
		t.Parallel()
		ctx, _, svc := initRentalTest(t, bookA)

		rental, err := svc.Checkout(ctx, caller, bookA.ID, rentedAt)
		require.NoError(t, err)
		_, err = svc.Return(ctx, rental.ID, rentedAt.Add(time.Hour))
		require.NoError(t, err)
		_, err = svc.Checkout(ctx, types.Identity{ID: "user-2"}, bookA.ID, rentedAt.Add(2*time.Hour))
		require.NoError(t, err)

		_, err = svc.Amend(ctx, rental.ID, RentalAmendment{ClearReturnedAt: true})
		require.ErrorIs(t, err, store.ErrConflict)
	})

	t.Run("re-opens a returned rental", func(t *testing.T) {
		t.Parallel()
		ctx, _, svc := initRentalTest(t, bookA)

		rental, err := svc.Checkout(ctx, caller, bookA.ID, rentedAt)
		require.NoError(t, err)
		_, err = svc.Return(ctx, rental.ID, rentedAt.Add(time.Hour))
		require.NoError(t, err)

		amended, err := svc.Amend(ctx, rental.ID, RentalAmendment{ClearReturnedAt: true})
		require.NoError(t, err)
		require.True(t, amended.Active())
	})

	t.Run("rejects inconsistent dates", func(t *testing.T) {
		t.Parallel()
		ctx, _, svc := initRentalTest(t, bookA)

		rental, err := svc.Checkout(ctx, caller, bookA.ID, rentedAt)
		require.NoError(t, err)

		early := rentedAt.Add(-time.Hour)
		_, err = svc.Amend(ctx, rental.ID, RentalAmendment{ReturnedAt: &early})
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestCancel(t *testing.T) {
	t.Parallel()

	book := types.Book{ID: "book-1", Name: "The Go Programming Language"}
	caller := types.Identity{ID: "user-1"}

	t.Run("removes the rental", func(t *testing.T) {
		t.Parallel()
		ctx, repo, svc := initRentalTest(t, book)

		rental, err := svc.Checkout(ctx, caller, book.ID, time.Time{})
		require.NoError(t, err)

		require.NoError(t, svc.Cancel(ctx, rental.ID))
		_, err = repo.Get(ctx, rental.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unknown rental", func(t *testing.T) {
		t.Parallel()
		ctx, _, svc := initRentalTest(t, book)

		require.ErrorIs(t, svc.Cancel(ctx, "no-such-rental"), store.ErrNotFound)
	})
}
