package app

import "errors"

var (
	// ErrNoSnapshot is returned before the first sync has completed.
	ErrNoSnapshot = errors.New("no snapshot yet")

	// ErrTicketNotFound is returned for tickets absent from the snapshot.
	ErrTicketNotFound = errors.New("ticket not in snapshot")

	// ErrNoOwner is returned when no account address is configured.
	ErrNoOwner = errors.New("owner address is not configured")

	// ErrInvalidConfig wraps rejected configuration updates.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrInvalidQuery is returned for malformed read filters.
	ErrInvalidQuery = errors.New("invalid query")
)
