package types

import "time"

// Rental links one book to one user for a lending period.
// A rental with a nil ReturnedAt is active; a book has at most one
// active rental at any time.
type Rental struct {
	ID         string     `json:"id" db:"id"`
	BookID     string     `json:"book_id" db:"book_id"`
	UserID     string     `json:"user_id" db:"user_id"`
	RentedAt   time.Time  `json:"rented_at" db:"rented_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty" db:"returned_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// Active reports whether the book is still checked out under this rental.
func (r Rental) Active() bool {
	return r.ReturnedAt == nil
}
