// Package notify batches settled action reports into Discord webhook posts.
package notify

import "time"

// TimerHandle cancels a scheduled flush. *time.Timer satisfies it.
type TimerHandle interface {
	Stop() bool
}

// AfterFunc schedules f to run after d.
type AfterFunc func(d time.Duration, f func()) TimerHandle

// DefaultAfterFunc is time.AfterFunc.
func DefaultAfterFunc(d time.Duration, f func()) TimerHandle {
	return time.AfterFunc(d, f)
}
