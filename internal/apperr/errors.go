// Package apperr defines sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidSelection = errors.New("invalid selection")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidCatalog   = errors.New("invalid catalog")
	ErrNotConfigured    = errors.New("not configured")
)
