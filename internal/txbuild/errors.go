package txbuild

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is matched by every ValidationError.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMissingSharedVersion means a shared object was referenced without
	// the version token from a prior read.
	ErrMissingSharedVersion = errors.New("shared object version is required")
	// ErrNotImplemented is returned for contract calls whose on-chain
	// interface is not final.
	ErrNotImplemented = errors.New("action is not implemented by the contract")
	// ErrUnknownAction is returned for an unrecognized action kind.
	ErrUnknownAction = errors.New("unknown action")
)

// ValidationError is malformed or missing input, caught before anything
// is sent to the ledger.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Reason == "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap returns the specific cause, if any.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is makes every ValidationError match ErrInvalidArgument.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func invalidErr(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}
