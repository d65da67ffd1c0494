package store

import "errors"

var (
	// ErrNotFound is returned when no row matches the lookup key.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write would violate a uniqueness
	// constraint (duplicate gate code or license plate).
	ErrConflict = errors.New("conflict")
)
