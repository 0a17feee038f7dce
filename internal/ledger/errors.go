package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for reads of objects that do not exist
	// when the caller asked for an existing one.
	ErrNotFound = errors.New("object not found")
	// ErrUnsupported is returned when a gateway lacks an optional capability.
	ErrUnsupported = errors.New("operation not supported by gateway")
)

// AdapterError is a network or RPC failure talking to the ledger.
// Transient errors may be retried where retry is safe (reads, status polls);
// a submission is never retried automatically.
type AdapterError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is an AdapterError marked transient.
func IsTransient(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae) && ae.Transient
}
