package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrInvalidOption    = errors.New("invalid option")
	ErrAlreadyVoted     = errors.New("already voted")
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrConflict is returned when a unique field (username, email) is already taken.
	ErrConflict = errors.New("conflict")
	// ErrForbidden is returned when the caller does not own what it tries to change.
	ErrForbidden = errors.New("forbidden")
)
