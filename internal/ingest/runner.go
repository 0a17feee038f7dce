package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/model"
)

// SnapshotStore persists the last good snapshot so a restart has something
// to show before the first pass completes.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *model.Snapshot, fingerprint string) error
}

// Status describes the runner's recent activity.
type Status struct {
	Owner       string    `json:"owner"`
	LastSyncAt  time.Time `json:"last_sync_at,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	Passes      int       `json:"passes"`
	Failures    int       `json:"failures"`
	Fingerprint string    `json:"fingerprint,omitempty"`
}

// Runner performs periodic sync passes in the background.
type Runner struct {
	sync       *Synchronizer
	store      SnapshotStore
	interval   time.Duration
	onSnapshot func(snap *model.Snapshot, fingerprint string)
	logger     *slog.Logger

	trigger chan struct{}

	mu     sync.Mutex
	owner  string
	status Status
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithStore persists snapshots whose fingerprint changed.
func WithStore(store SnapshotStore) RunnerOption {
	return func(r *Runner) { r.store = store }
}

// WithOnSnapshot is called after every successful pass.
func WithOnSnapshot(f func(snap *model.Snapshot, fingerprint string)) RunnerOption {
	return func(r *Runner) { r.onSnapshot = f }
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a Runner syncing owner every interval.
func NewRunner(s *Synchronizer, owner string, interval time.Duration, opts ...RunnerOption) *Runner {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	r := &Runner{
		sync:     s,
		interval: interval,
		logger:   slog.Default(),
		trigger:  make(chan struct{}, 1),
		owner:    model.NormalizeID(owner),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.status.Owner = r.owner
	return r
}

// SetOwner switches the account being synced and requests a pass.
// The stored fingerprint is reset so the next pass always publishes.
func (r *Runner) SetOwner(owner string) {
	r.mu.Lock()
	r.owner = model.NormalizeID(owner)
	r.status = Status{Owner: r.owner}
	r.mu.Unlock()
	r.Trigger()
}

// Trigger requests an immediate pass without waiting for it.
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Status returns a copy of the current status.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Run blocks until ctx is cancelled, syncing once at start, on every tick
// and on every Trigger. Returns ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("sync runner started", "interval", r.interval)
	defer r.logger.Info("sync runner stopped")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-r.trigger:
			r.RunOnce(ctx)
			ticker.Reset(r.interval)
		}
	}
}

// RunOnce performs one retried pass and publishes the result.
func (r *Runner) RunOnce(ctx context.Context) (*model.Snapshot, error) {
	r.mu.Lock()
	owner := r.owner
	r.mu.Unlock()

	if owner == "" {
		return nil, ErrNoOwner
	}

	snap, err := r.sync.SyncWithRetry(ctx, owner)

	r.mu.Lock()
	if owner != r.owner {
		// Owner switched mid-pass; this result belongs to nobody.
		r.mu.Unlock()
		return nil, context.Canceled
	}
	r.status.Passes++
	if err != nil {
		r.status.Failures++
		r.status.LastError = err.Error()
		r.mu.Unlock()
		if ctx.Err() == nil {
			r.logger.Error("sync pass failed", "owner", owner, "error", err)
		}
		return nil, err
	}
	fp := Fingerprint(snap)
	changed := fp != r.status.Fingerprint
	r.status.LastSyncAt = snap.SyncedAt
	r.status.LastError = ""
	r.status.Fingerprint = fp
	r.mu.Unlock()

	if changed && r.store != nil {
		if err := r.store.SaveSnapshot(ctx, snap, fp); err != nil {
			r.logger.Warn("failed to persist snapshot", "error", err)
		}
	}
	if r.onSnapshot != nil {
		r.onSnapshot(snap, fp)
	}
	return snap, nil
}

// Seed records a snapshot restored from the store as the last published
// one, so an unchanged first pass does not rewrite it.
func (r *Runner) Seed(snap *model.Snapshot, fingerprint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if snap == nil || snap.Owner != r.owner {
		return
	}
	r.status.Fingerprint = fingerprint
	r.status.LastSyncAt = snap.SyncedAt
}
