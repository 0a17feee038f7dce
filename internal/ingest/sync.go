package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/backoff"
	"github.com/graaaaa/suiticket-companion/internal/classify"
	"github.com/graaaaa/suiticket-companion/internal/ledger"
	"github.com/graaaaa/suiticket-companion/internal/model"
)

const (
	// PageSize is the owned-object page size requested from the node.
	PageSize = ledger.DefaultPageSize
	// MaxPages caps one pass. An account needing more is treated as a
	// pagination fault rather than silently truncated.
	MaxPages = 200
	// RetryAttempts is the number of full passes SyncWithRetry makes.
	RetryAttempts = 3
)

// RetrySchedule is the wait between full passes: 250ms, 400ms.
var RetrySchedule = backoff.Linear{Base: 250 * time.Millisecond, Step: 150 * time.Millisecond}

var (
	ErrNoOwner           = errors.New("owner address is not set")
	ErrPaginationRunaway = errors.New("owned-object pagination did not terminate")
)

// Synchronizer reads the full owned-object set and classifies it.
type Synchronizer struct {
	gateway    ledger.Gateway
	classifier *classify.Classifier
	packageID  string
	clock      Clock
	sleep      backoff.Sleeper
	logger     *slog.Logger
	maxPages   int
	malformed  MalformedSink
}

// MalformedSink receives package objects whose fields could not be read.
type MalformedSink interface {
	RecordMalformed(ctx context.Context, obj ledger.ObjectView) error
}

// SyncOption configures a Synchronizer.
type SyncOption func(*Synchronizer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SyncOption {
	return func(s *Synchronizer) { s.logger = logger }
}

// WithClock sets the clock used for SyncedAt (for testing).
func WithClock(clock Clock) SyncOption {
	return func(s *Synchronizer) { s.clock = clock }
}

// WithSleeper replaces the retry sleep (for testing).
func WithSleeper(sleep backoff.Sleeper) SyncOption {
	return func(s *Synchronizer) { s.sleep = sleep }
}

// WithMaxPages overrides MaxPages.
func WithMaxPages(n int) SyncOption {
	return func(s *Synchronizer) { s.maxPages = n }
}

// WithMalformedSink reports objects with unreadable fields.
func WithMalformedSink(sink MalformedSink) SyncOption {
	return func(s *Synchronizer) { s.malformed = sink }
}

// NewSynchronizer creates a Synchronizer for one deployed package.
func NewSynchronizer(gw ledger.Gateway, packageID string, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		gateway:    gw,
		classifier: classify.New(packageID),
		packageID:  model.NormalizeID(packageID),
		clock:      DefaultClock,
		sleep:      backoff.Sleep,
		logger:     slog.Default(),
		maxPages:   MaxPages,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync performs one full pass. Any page error aborts the pass and no
// partial snapshot is returned; cursors are not reused across passes.
func (s *Synchronizer) Sync(ctx context.Context, owner string) (*model.Snapshot, error) {
	owner = model.NormalizeID(owner)
	if owner == "" {
		return nil, ErrNoOwner
	}

	var objects []ledger.ObjectView
	cursor := ""
	seenCursors := make(map[string]bool)

	for page := 0; ; page++ {
		if page >= s.maxPages {
			return nil, fmt.Errorf("%w: more than %d pages", ErrPaginationRunaway, s.maxPages)
		}
		p, err := s.gateway.GetOwnedObjects(ctx, owner, cursor, PageSize)
		if err != nil {
			return nil, fmt.Errorf("list owned objects (page %d): %w", page, err)
		}
		objects = append(objects, p.Objects...)

		if !p.HasNextPage || p.NextCursor == "" {
			break
		}
		if seenCursors[p.NextCursor] {
			return nil, fmt.Errorf("%w: cursor %q repeated", ErrPaginationRunaway, p.NextCursor)
		}
		seenCursors[p.NextCursor] = true
		cursor = p.NextCursor
	}

	parts := s.classifier.Partition(objects)
	if parts.Incomplete > 0 {
		s.logger.Warn("owned objects with unreadable fields",
			"owner", owner,
			"count", parts.Incomplete,
		)
		if s.malformed != nil {
			for _, obj := range parts.Malformed {
				if err := s.malformed.RecordMalformed(ctx, obj); err != nil {
					s.logger.Debug("failed to record malformed object", "id", obj.ID, "error", err)
				}
			}
		}
	}

	snap := model.NewSnapshot(owner, s.packageID,
		parts.Events, parts.Capabilities, parts.Tickets, parts.Permits,
		s.clock.Now())

	s.logger.Debug("sync pass complete",
		"owner", owner,
		"objects", len(objects),
		"ignored", parts.Ignored,
		"tickets", len(snap.Tickets),
		"capabilities", len(snap.Capabilities),
		"permits", len(snap.Permits),
	)
	return snap, nil
}

// SyncWithRetry runs Sync up to RetryAttempts times with a linear delay
// between attempts, returning the last error if every attempt fails.
func (s *Synchronizer) SyncWithRetry(ctx context.Context, owner string) (*model.Snapshot, error) {
	var lastErr error
	for i := 0; i < RetryAttempts; i++ {
		snap, err := s.Sync(ctx, owner)
		if err == nil {
			return snap, nil
		}
		lastErr = err
		if errors.Is(err, ErrNoOwner) || ctx.Err() != nil {
			return nil, err
		}
		s.logger.Warn("sync attempt failed",
			"attempt", i+1,
			"error", err,
		)
		if i < RetryAttempts-1 {
			if err := s.sleep(ctx, RetrySchedule.Delay(i)); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("sync failed after %d attempts: %w", RetryAttempts, lastErr)
}
