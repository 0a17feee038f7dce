package model

import "time"

// ActionOutcome is the settled state of a user action.
type ActionOutcome string

const (
	// ActionPending is recorded when an action is submitted and not yet settled.
	ActionPending ActionOutcome = "pending"
	// ActionSucceeded means the transaction finalized with success.
	ActionSucceeded ActionOutcome = "succeeded"
	// ActionFailed means the transaction finalized with a failure status.
	ActionFailed ActionOutcome = "failed"
	// ActionTimedOut means finality was not observed; the transaction may
	// still land.
	ActionTimedOut ActionOutcome = "timed_out"
	// ActionErrored means the action never reached the ledger, or the
	// submission itself failed.
	ActionErrored ActionOutcome = "errored"
)

// Settled reports whether the outcome is final.
func (o ActionOutcome) Settled() bool {
	return o != ActionPending && o != ""
}

// Action is one entry of the action journal.
type Action struct {
	ID           string        `json:"id"`
	Kind         string        `json:"kind"`
	Owner        string        `json:"owner"`
	PackageID    string        `json:"package_id"`
	IntentDigest string        `json:"intent_digest,omitempty"`
	Digest       string        `json:"digest,omitempty"`
	Outcome      ActionOutcome `json:"outcome"`
	CreatedID    string        `json:"created_id,omitempty"`
	Message      string        `json:"message,omitempty"`
	Warning      string        `json:"warning,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	SettledAt    time.Time     `json:"settled_at,omitzero"`
}
