// Package backoff provides retry delay schedules and a context-aware sleep.
//
// Ledger retries and polls use a deterministic linear staircase; webhook
// delivery uses exponential backoff with jitter.
package backoff

import (
	"context"
	"time"
)

// Linear is a deterministic staircase: Base + attempt*Step.
type Linear struct {
	Base time.Duration
	Step time.Duration
}

// Delay returns the wait after the given attempt (0-indexed).
func (l Linear) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return l.Base + time.Duration(attempt)*l.Step
}

// Sleeper waits for d or until ctx is done, whichever is first.
// Tests swap in a recorder that returns immediately.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
