package store

import "errors"

// Sentinel errors for the store package.
var (
	// ErrInvalidCursor is returned when a cursor cannot be decoded.
	ErrInvalidCursor = errors.New("invalid cursor format")

	// ErrInvalidAction is returned when an action fails validation.
	ErrInvalidAction = errors.New("invalid action")

	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPrefs is returned for preference values outside their domain.
	ErrInvalidPrefs = errors.New("invalid preferences")
)
