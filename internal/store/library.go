package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/booklend/apiserver/types"
	"github.com/google/uuid"
)

// LibraryRepository handles persistence for library branches.
type LibraryRepository struct {
	db *sql.DB
}

func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

func (r *LibraryRepository) List(ctx context.Context) ([]types.Library, error) {
	const query = `
		SELECT id, name, city, created_at, updated_at
		FROM libraries
		ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	libraries := make([]types.Library, 0)
	for rows.Next() {
		var library types.Library
		if err := rows.Scan(&library.ID, &library.Name, &library.City, &library.CreatedAt, &library.UpdatedAt); err != nil {
			return nil, err
		}
		libraries = append(libraries, library)
	}
	return libraries, rows.Err()
}

func (r *LibraryRepository) Get(ctx context.Context, id string) (types.Library, error) {
	const query = `
		SELECT id, name, city, created_at, updated_at
		FROM libraries
		WHERE id = $1`
	var library types.Library
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&library.ID,
		&library.Name,
		&library.City,
		&library.CreatedAt,
		&library.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Library{}, ErrNotFound
		}
		return types.Library{}, err
	}

	books, err := listBooks(ctx, r.db, "library_id", library.ID)
	if err != nil {
		return types.Library{}, err
	}
	library.Books = books
	return library, nil
}

func (r *LibraryRepository) GetByCity(ctx context.Context, city string) ([]types.Library, error) {
	const query = `
		SELECT id, name, city, created_at, updated_at
		FROM libraries
		WHERE city = $1
		ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, city)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	libraries := make([]types.Library, 0)
	for rows.Next() {
		var library types.Library
		if err := rows.Scan(&library.ID, &library.Name, &library.City, &library.CreatedAt, &library.UpdatedAt); err != nil {
			return nil, err
		}
		libraries = append(libraries, library)
	}
	return libraries, rows.Err()
}

func (r *LibraryRepository) Create(ctx context.Context, library types.Library) (types.Library, error) {
	now := time.Now()
	library.ID = uuid.NewString()
	library.CreatedAt = now
	library.UpdatedAt = now

	const query = `
		INSERT INTO libraries (id, name, city, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, library.ID, library.Name, library.City, library.CreatedAt, library.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return types.Library{}, ErrConflict
		}
		return types.Library{}, err
	}
	return library, nil
}

func (r *LibraryRepository) Update(ctx context.Context, library types.Library) (types.Library, error) {
	library.UpdatedAt = time.Now()

	const query = `
		UPDATE libraries
		SET name = $1,
			city = $2,
			updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, library.Name, library.City, library.UpdatedAt, library.ID)
	if err != nil {
		return types.Library{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Library{}, err
	}
	if affected == 0 {
		return types.Library{}, ErrNotFound
	}
	return library, nil
}

// Delete removes the library. Books referencing it are removed by the
// store-level cascade.
func (r *LibraryRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM libraries WHERE id = $1`
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
