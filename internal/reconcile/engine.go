// Package reconcile runs a user action end to end: build the intent,
// submit the wallet-signed transaction once, await finality, patch the
// local snapshot optimistically, then replace it with an authoritative
// re-read.
package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/graaaaa/suiticket-companion/internal/derive"
	"github.com/graaaaa/suiticket-companion/internal/finality"
	"github.com/graaaaa/suiticket-companion/internal/ledger"
	"github.com/graaaaa/suiticket-companion/internal/model"
	"github.com/graaaaa/suiticket-companion/internal/txbuild"
)

// Resyncer performs a retried owned-set pass and publishes the result to
// the shared state. ingest.Runner implements it.
type Resyncer interface {
	RunOnce(ctx context.Context) (*model.Snapshot, error)
}

// Journal records actions as they start and settle.
type Journal interface {
	InsertAction(ctx context.Context, a model.Action) error
	SettleAction(ctx context.Context, a model.Action) error
}

// Step is a stage of an action's progress.
type Step string

const (
	StepSubmitting Step = "submitting"
	StepAwaiting   Step = "awaiting"
	StepPatched    Step = "patched"
	StepResyncing  Step = "resyncing"
	StepSettled    Step = "settled"
)

// Narration is one progress notice for an in-flight action.
type Narration struct {
	ActionID string    `json:"action_id"`
	Kind     string    `json:"kind"`
	Step     Step      `json:"step"`
	Message  string    `json:"message,omitempty"`
	At       time.Time `json:"at"`
}

// Narrator receives progress notices. Narrate must not block.
type Narrator interface {
	Narrate(n Narration)
}

// NarratorFunc adapts a function to Narrator.
type NarratorFunc func(Narration)

func (f NarratorFunc) Narrate(n Narration) { f(n) }

// Report is the settled result of Execute.
type Report struct {
	model.Action
	Created    map[string]string `json:"created,omitempty"`
	Provenance model.Provenance  `json:"provenance,omitempty"`
	Attempts   int               `json:"attempts,omitempty"`
}

// Engine composes the builders, gateway, finality poller and shared state.
// Execute processes one action at a time.
type Engine struct {
	builder *txbuild.Builder
	gw      ledger.Gateway
	poller  *finality.Poller
	state   *derive.State

	resync    Resyncer
	journal   Journal
	narrator  Narrator
	onChange  func(*derive.Change)
	onSettled func(Report)
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	mu    sync.RWMutex
	owner string

	exec sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithOwner sets the signing account.
func WithOwner(owner string) Option {
	return func(e *Engine) { e.owner = model.NormalizeID(owner) }
}

// WithResyncer sets the pass run after a successful action.
func WithResyncer(r Resyncer) Option {
	return func(e *Engine) { e.resync = r }
}

// WithJournal sets the action journal.
func WithJournal(j Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithNarrator sets the progress sink.
func WithNarrator(n Narrator) Option {
	return func(e *Engine) { e.narrator = n }
}

// WithOnChange is called with every optimistic state change.
func WithOnChange(f func(*derive.Change)) Option {
	return func(e *Engine) { e.onChange = f }
}

// WithOnSettled is called with every settled report.
func WithOnSettled(f func(Report)) Option {
	return func(e *Engine) { e.onSettled = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the time source for journal timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator sets the action id source.
func WithIDGenerator(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

// New creates an Engine for packageID.
func New(gw ledger.Gateway, poller *finality.Poller, state *derive.State, packageID string, opts ...Option) *Engine {
	e := &Engine{
		builder: txbuild.NewBuilder(packageID),
		gw:      gw,
		poller:  poller,
		state:   state,
		logger:  slog.Default(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetOwner switches the signing account.
func (e *Engine) SetOwner(owner string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.owner = model.NormalizeID(owner)
}

// Owner returns the signing account.
func (e *Engine) Owner() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.owner
}

// PackageID returns the configured package.
func (e *Engine) PackageID() string {
	return e.builder.PackageID()
}

func (e *Engine) narrate(rep *Report, step Step, msg string) {
	if e.narrator == nil {
		return
	}
	e.narrator.Narrate(Narration{
		ActionID: rep.ID,
		Kind:     rep.Kind,
		Step:     step,
		Message:  msg,
		At:       e.now(),
	})
}

func (e *Engine) publish(c *derive.Change) {
	if c != nil && e.onChange != nil {
		e.onChange(c)
	}
}

func sameAddress(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
