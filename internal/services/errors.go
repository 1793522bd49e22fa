package services

import "errors"

// Domain failure kinds surfaced to the HTTP layer. Store errors
// (store.ErrNotFound, store.ErrConflict) pass through unchanged.
var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized marks a credential mismatch.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden marks an authenticated caller without sufficient privilege.
	ErrForbidden = errors.New("forbidden")

	// ErrUserInactive marks authentication against a deactivated account.
	ErrUserInactive = errors.New("user is not active")
)
