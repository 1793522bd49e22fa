package types

import "time"

// Book belongs to exactly one author and one library. Both references are
// nullable until assigned. A book has at most one active rental at a time.
type Book struct {
	ID        string     `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	WrittenAt *time.Time `json:"written_at,omitempty" db:"written_at"`
	AuthorID  *string    `json:"author_id,omitempty" db:"author_id"`
	LibraryID *string    `json:"library_id,omitempty" db:"library_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}
