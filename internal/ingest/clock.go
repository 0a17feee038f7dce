// Package ingest keeps a local snapshot of the account's owned objects in
// step with the ledger.
package ingest

import "time"

// Clock provides time for deterministic testing.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// DefaultClock is the wall clock.
var DefaultClock Clock = realClock{}
