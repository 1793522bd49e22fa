package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/booklend/apiserver/types"
	"github.com/google/uuid"
)

// RentalRepository handles persistence for rentals.
//
// The schema carries a partial unique index on rentals(book_id) where
// returned_at IS NULL, so two concurrent checkouts of the same book cannot
// both commit; the loser surfaces as ErrConflict.
type RentalRepository struct {
	db *sql.DB
}

func NewRentalRepository(db *sql.DB) *RentalRepository {
	return &RentalRepository{db: db}
}

const rentalColumns = `id, book_id, user_id, rented_at, returned_at, created_at, updated_at`

func (r *RentalRepository) List(ctx context.Context) ([]types.Rental, error) {
	const query = `
		SELECT ` + rentalColumns + `
		FROM rentals
		ORDER BY rented_at DESC`
	return r.list(ctx, query)
}

func (r *RentalRepository) ListByUser(ctx context.Context, userID string) ([]types.Rental, error) {
	const query = `
		SELECT ` + rentalColumns + `
		FROM rentals
		WHERE user_id = $1
		ORDER BY rented_at DESC`
	return r.list(ctx, query, userID)
}

func (r *RentalRepository) list(ctx context.Context, query string, args ...any) ([]types.Rental, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rentals := make([]types.Rental, 0)
	for rows.Next() {
		rental, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, rental)
	}
	return rentals, rows.Err()
}

func (r *RentalRepository) Get(ctx context.Context, id string) (types.Rental, error) {
	const query = `
		SELECT ` + rentalColumns + `
		FROM rentals
		WHERE id = $1`
	rental, err := scanRental(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Rental{}, ErrNotFound
		}
		return types.Rental{}, err
	}
	return rental, nil
}

// GetActiveByBook returns the open rental for a book, if any.
func (r *RentalRepository) GetActiveByBook(ctx context.Context, bookID string) (types.Rental, error) {
	const query = `
		SELECT ` + rentalColumns + `
		FROM rentals
		WHERE book_id = $1 AND returned_at IS NULL`
	rental, err := scanRental(r.db.QueryRowContext(ctx, query, bookID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Rental{}, ErrNotFound
		}
		return types.Rental{}, err
	}
	return rental, nil
}

func (r *RentalRepository) Create(ctx context.Context, rental types.Rental) (types.Rental, error) {
	now := time.Now()
	rental.ID = uuid.NewString()
	rental.CreatedAt = now
	rental.UpdatedAt = now
	if rental.RentedAt.IsZero() {
		rental.RentedAt = now
	}

	const query = `
		INSERT INTO rentals (id, book_id, user_id, rented_at, returned_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		rental.ID,
		rental.BookID,
		rental.UserID,
		rental.RentedAt,
		rental.ReturnedAt,
		rental.CreatedAt,
		rental.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return types.Rental{}, ErrConflict
		}
		if isForeignKeyViolation(err) {
			return types.Rental{}, ErrNotFound
		}
		return types.Rental{}, err
	}
	return rental, nil
}

func (r *RentalRepository) Update(ctx context.Context, rental types.Rental) (types.Rental, error) {
	rental.UpdatedAt = time.Now()

	const query = `
		UPDATE rentals
		SET book_id = $1,
			user_id = $2,
			rented_at = $3,
			returned_at = $4,
			updated_at = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		rental.BookID,
		rental.UserID,
		rental.RentedAt,
		rental.ReturnedAt,
		rental.UpdatedAt,
		rental.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Rental{}, ErrConflict
		}
		if isForeignKeyViolation(err) {
			return types.Rental{}, ErrNotFound
		}
		return types.Rental{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Rental{}, err
	}
	if affected == 0 {
		return types.Rental{}, ErrNotFound
	}
	return rental, nil
}

func (r *RentalRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM rentals WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRental(row rowScanner) (types.Rental, error) {
	var rental types.Rental
	err := row.Scan(
		&rental.ID,
		&rental.BookID,
		&rental.UserID,
		&rental.RentedAt,
		&rental.ReturnedAt,
		&rental.CreatedAt,
		&rental.UpdatedAt,
	)
	return rental, err
}
