// Package finality resolves a submitted transaction digest to its final
// outcome.
//
// A gateway that implements ledger.FinalityWaiter is asked once and the
// call blocks until the node reports effects. Any other gateway is polled
// with a bounded, linearly growing delay. The strategy is chosen once in
// New.
package finality

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/backoff"
	"github.com/graaaaa/suiticket-companion/internal/ledger"
)

// MaxAttempts bounds the polling path.
const MaxAttempts = 25

// PollSchedule is the delay after each unsuccessful poll.
var PollSchedule = backoff.Linear{Base: 250 * time.Millisecond, Step: 50 * time.Millisecond}

// ErrTimedOut means the node never reported a status within the polling
// ceiling. The transaction may still land; its outcome is unknown.
var ErrTimedOut = errors.New("timed out waiting for transaction status")

// State is the lifecycle of one await.
type State string

const (
	StatePending   State = "pending"
	StateFinalized State = "finalized"
	StateTimedOut  State = "timed_out"
	StateErrored   State = "errored"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateFinalized || s == StateTimedOut || s == StateErrored
}

// Outcome values of a finalized transaction.
const (
	OutcomeSuccess = ledger.StatusSuccess
	OutcomeFailure = ledger.StatusFailure
)

// Mode names the strategy a Poller uses.
type Mode string

const (
	ModeWait Mode = "wait"
	ModePoll Mode = "poll"
)

// Result is the outcome of Await. Created maps each requested type suffix
// to the id of the object the transaction created, when there was one.
type Result struct {
	State    State             `json:"state"`
	Digest   string            `json:"digest"`
	Outcome  string            `json:"outcome,omitempty"`
	Error    string            `json:"error,omitempty"`
	Abort    *ledger.MoveAbort `json:"abort,omitempty"`
	Created  map[string]string `json:"created,omitempty"`
	Attempts int               `json:"attempts"`
}

// RejectionError is returned for a transaction that finalized with a
// failure status.
type RejectionError struct {
	Reason string
	Abort  *ledger.MoveAbort
}

func (e *RejectionError) Error() string {
	if e.Reason == "" {
		return "transaction failed"
	}
	return "transaction failed: " + e.Reason
}

// Poller awaits transaction finality through a gateway.
type Poller struct {
	gw          ledger.Gateway
	waiter      ledger.FinalityWaiter
	maxAttempts int
	schedule    backoff.Linear
	sleep       backoff.Sleeper
	logger      *slog.Logger
}

// Option configures a Poller.
type Option func(*Poller)

// WithSleeper replaces the delay function between polls.
func WithSleeper(s backoff.Sleeper) Option {
	return func(p *Poller) { p.sleep = s }
}

// WithMaxAttempts overrides the polling ceiling.
func WithMaxAttempts(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

// ForcePolling ignores a blocking wait capability on the gateway.
func ForcePolling() Option {
	return func(p *Poller) { p.waiter = nil }
}

// New creates a Poller for gw.
func New(gw ledger.Gateway, opts ...Option) *Poller {
	p := &Poller{
		gw:          gw,
		maxAttempts: MaxAttempts,
		schedule:    PollSchedule,
		sleep:       backoff.Sleep,
		logger:      slog.Default(),
	}
	if w, ok := gw.(ledger.FinalityWaiter); ok {
		p.waiter = w
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Mode reports the strategy chosen at construction.
func (p *Poller) Mode() Mode {
	if p.waiter != nil {
		return ModeWait
	}
	return ModePoll
}

// Await resolves digest. createdSuffixes name object types (for example
// "::ticket::Ticket") whose created ids are reported in Result.Created.
//
// A failed transaction returns the finalized Result together with a
// *RejectionError. Exhausting the polling ceiling returns ErrTimedOut.
func (p *Poller) Await(ctx context.Context, digest string, createdSuffixes ...string) (Result, error) {
	res := Result{State: StatePending, Digest: digest}
	if digest == "" {
		res.State = StateErrored
		return res, fmt.Errorf("await: empty digest")
	}

	if p.waiter != nil {
		res.Attempts = 1
		tx, err := p.waiter.WaitForFinality(ctx, digest)
		if err != nil {
			res.State = StateErrored
			return res, err
		}
		if !tx.Ready() {
			res.State = StateErrored
			return res, fmt.Errorf("await %s: wait returned without a status", digest)
		}
		return p.finalize(res, tx, createdSuffixes)
	}

	for i := 0; i < p.maxAttempts; i++ {
		res.Attempts = i + 1
		tx, err := p.gw.GetTransaction(ctx, digest)
		if err == nil && tx.Ready() {
			return p.finalize(res, tx, createdSuffixes)
		}
		if err != nil {
			if ctx.Err() != nil {
				res.State = StateErrored
				return res, ctx.Err()
			}
			p.logger.Debug("transaction status not available",
				"digest", digest, "attempt", i+1, "transient", ledger.IsTransient(err), "error", err)
		}
		if i == p.maxAttempts-1 {
			break
		}
		if err := p.sleep(ctx, p.schedule.Delay(i)); err != nil {
			res.State = StateErrored
			return res, err
		}
	}

	res.State = StateTimedOut
	return res, ErrTimedOut
}

func (p *Poller) finalize(res Result, tx ledger.TxResponse, suffixes []string) (Result, error) {
	res.State = StateFinalized
	res.Outcome = tx.Status
	if tx.Digest != "" {
		res.Digest = tx.Digest
	}
	for _, s := range suffixes {
		if id, ok := ledger.CreatedObjectID(tx.ObjectChanges, s); ok {
			if res.Created == nil {
				res.Created = make(map[string]string, len(suffixes))
			}
			res.Created[s] = id
		}
	}
	if tx.Status == ledger.StatusSuccess {
		return res, nil
	}
	res.Error = tx.Error
	abort, _ := ledger.ParseMoveAbort(tx.Error)
	res.Abort = abort
	return res, &RejectionError{Reason: tx.Error, Abort: abort}
}
