package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/booklend/apiserver/types"
	"github.com/google/uuid"
)

// AuthorRepository handles persistence for authors.
type AuthorRepository struct {
	db *sql.DB
}

func NewAuthorRepository(db *sql.DB) *AuthorRepository {
	return &AuthorRepository{db: db}
}

func (r *AuthorRepository) List(ctx context.Context) ([]types.Author, error) {
	const query = `
		SELECT id, name, created_at, updated_at
		FROM authors
		ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	authors := make([]types.Author, 0)
	for rows.Next() {
		var author types.Author
		if err := rows.Scan(&author.ID, &author.Name, &author.CreatedAt, &author.UpdatedAt); err != nil {
			return nil, err
		}
		authors = append(authors, author)
	}
	return authors, rows.Err()
}

func (r *AuthorRepository) Get(ctx context.Context, id string) (types.Author, error) {
	const query = `
		SELECT id, name, created_at, updated_at
		FROM authors
		WHERE id = $1`
	var author types.Author
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&author.ID,
		&author.Name,
		&author.CreatedAt,
		&author.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Author{}, ErrNotFound
		}
		return types.Author{}, err
	}

	books, err := listBooks(ctx, r.db, "author_id", author.ID)
	if err != nil {
		return types.Author{}, err
	}
	author.Books = books
	return author, nil
}

func (r *AuthorRepository) GetByName(ctx context.Context, name string) (types.Author, error) {
	const query = `SELECT id FROM authors WHERE name = $1`
	var id string
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Author{}, ErrNotFound
		}
		return types.Author{}, err
	}
	return r.Get(ctx, id)
}

func (r *AuthorRepository) Create(ctx context.Context, author types.Author) (types.Author, error) {
	now := time.Now()
	author.ID = uuid.NewString()
	author.CreatedAt = now
	author.UpdatedAt = now

	const query = `
		INSERT INTO authors (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, author.ID, author.Name, author.CreatedAt, author.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return types.Author{}, ErrConflict
		}
		return types.Author{}, err
	}
	return author, nil
}

func (r *AuthorRepository) Update(ctx context.Context, author types.Author) (types.Author, error) {
	author.UpdatedAt = time.Now()

	const query = `
		UPDATE authors
		SET name = $1,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, author.Name, author.UpdatedAt, author.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Author{}, ErrConflict
		}
		return types.Author{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Author{}, err
	}
	if affected == 0 {
		return types.Author{}, ErrNotFound
	}
	return author, nil
}

// Delete removes the author. Books referencing it are removed by the
// store-level cascade.
func (r *AuthorRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM authors WHERE id = $1`
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
