package storage

import "errors"

// Store errors. Both stores are append-only: observations and runs are
// never updated in place.
var (
	// ErrNotFound is returned when a series has no observations or a run ID
	// is unknown.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a (series, date) pair or a run ID is
	// already stored.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned for records missing their key fields.
	ErrInvalidInput = errors.New("invalid input")
)
