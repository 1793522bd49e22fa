package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/booklend/apiserver/types"
	"github.com/google/uuid"
)

// BookRepository handles persistence for books.
type BookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) List(ctx context.Context) ([]types.Book, error) {
	const query = `
		SELECT id, name, written_at, author_id, library_id, created_at, updated_at
		FROM books
		ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := make([]types.Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

func (r *BookRepository) Get(ctx context.Context, id string) (types.Book, error) {
	const query = `
		SELECT id, name, written_at, author_id, library_id, created_at, updated_at
		FROM books
		WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *BookRepository) GetByName(ctx context.Context, name string) (types.Book, error) {
	const query = `
		SELECT id, name, written_at, author_id, library_id, created_at, updated_at
		FROM books
		WHERE name = $1`
	return r.getOne(ctx, query, name)
}

func (r *BookRepository) getOne(ctx context.Context, query string, arg any) (types.Book, error) {
	book, err := scanBook(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Book{}, ErrNotFound
		}
		return types.Book{}, err
	}
	return book, nil
}

func (r *BookRepository) Create(ctx context.Context, book types.Book) (types.Book, error) {
	now := time.Now()
	book.ID = uuid.NewString()
	book.CreatedAt = now
	book.UpdatedAt = now

	const query = `
		INSERT INTO books (id, name, written_at, author_id, library_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		book.ID,
		book.Name,
		book.WrittenAt,
		book.AuthorID,
		book.LibraryID,
		book.CreatedAt,
		book.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return types.Book{}, ErrConflict
		}
		if isForeignKeyViolation(err) {
			return types.Book{}, ErrNotFound
		}
		return types.Book{}, err
	}
	return book, nil
}

func (r *BookRepository) Update(ctx context.Context, book types.Book) (types.Book, error) {
	book.UpdatedAt = time.Now()

	const query = `
		UPDATE books
		SET name = $1,
			written_at = $2,
			author_id = $3,
			library_id = $4,
			updated_at = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		book.Name,
		book.WrittenAt,
		book.AuthorID,
		book.LibraryID,
		book.UpdatedAt,
		book.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Book{}, ErrConflict
		}
		if isForeignKeyViolation(err) {
			return types.Book{}, ErrNotFound
		}
		return types.Book{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Book{}, err
	}
	if affected == 0 {
		return types.Book{}, ErrNotFound
	}
	return book, nil
}

// Delete removes the book. Rentals referencing it are removed by the
// store-level cascade.
func (r *BookRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM books WHERE id = $1`
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (types.Book, error) {
	var book types.Book
	err := row.Scan(
		&book.ID,
		&book.Name,
		&book.WrittenAt,
		&book.AuthorID,
		&book.LibraryID,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	return book, err
}

// listBooks loads the books referencing a parent entity through the named
// foreign key column. Shared by the author and library repositories.
func listBooks(ctx context.Context, db *sql.DB, fkColumn, parentID string) ([]types.Book, error) {
	query := `
		SELECT id, name, written_at, author_id, library_id, created_at, updated_at
		FROM books
		WHERE ` + fkColumn + ` = $1
		ORDER BY name`
	rows, err := db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := make([]types.Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}
