// Package derive holds the client-local snapshot and reports what changed
// each time it is replaced or patched.
package derive

import (
	"sync"

	"github.com/graaaaa/suiticket-companion/internal/model"
)

// ChangeType indicates how the snapshot changed.
type ChangeType int

const (
	// ChangeReplaced means a full ledger read replaced the snapshot.
	ChangeReplaced ChangeType = iota + 1
	// ChangePatched means an optimistic local patch was applied.
	ChangePatched
)

func (t ChangeType) String() string {
	switch t {
	case ChangeReplaced:
		return "replaced"
	case ChangePatched:
		return "patched"
	default:
		return "unknown"
	}
}

// Change describes one state transition, for publishing to subscribers.
type Change struct {
	Type        ChangeType       `json:"-"`
	Kind        string           `json:"kind"`
	Provenance  model.Provenance `json:"provenance"`
	Generation  uint64           `json:"generation"`
	Owner       string           `json:"owner"`
	Counts      model.Counts     `json:"counts"`
	Fingerprint string           `json:"fingerprint,omitempty"`
}

// State is the single snapshot shared by the API, the sync runner and the
// reconciliation engine. Replacement is wholesale; the last writer wins.
// It is safe for concurrent use.
type State struct {
	mu          sync.RWMutex
	snap        *model.Snapshot
	provenance  model.Provenance
	fingerprint string
	generation  uint64
}

// New creates an empty State.
func New() *State {
	return &State{}
}

// Replace installs an authoritative snapshot. When fingerprint matches the
// current confirmed snapshot nothing changes and nil is returned, so a
// periodic pass over an idle account stays silent. An empty fingerprint
// always replaces.
func (s *State) Replace(snap *model.Snapshot, fingerprint string) *Change {
	if snap == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if fingerprint != "" && fingerprint == s.fingerprint &&
		s.provenance == model.Confirmed && s.snap != nil && s.snap.Owner == snap.Owner {
		// Keep the newer sync time without announcing a change.
		s.snap.SyncedAt = snap.SyncedAt
		return nil
	}

	s.snap = snap.Clone()
	s.provenance = model.Confirmed
	s.fingerprint = fingerprint
	s.generation++
	return s.changeLocked(ChangeReplaced)
}

// ApplyOptimistic applies patch to a copy of the current snapshot and
// installs the copy as optimistic. patch reports whether it changed
// anything; a false return, or an empty state, leaves the state untouched
// and returns nil.
func (s *State) ApplyOptimistic(patch func(*model.Snapshot) bool) *Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap == nil {
		return nil
	}
	next := s.snap.Clone()
	if !patch(next) {
		return nil
	}
	next.Reindex()

	s.snap = next
	s.provenance = model.Optimistic
	s.fingerprint = ""
	s.generation++
	return s.changeLocked(ChangePatched)
}

// Clear drops the snapshot, e.g. after the owner changes.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = nil
	s.provenance = ""
	s.fingerprint = ""
	s.generation++
}

func (s *State) changeLocked(t ChangeType) *Change {
	return &Change{
		Type:        t,
		Kind:        t.String(),
		Provenance:  s.provenance,
		Generation:  s.generation,
		Owner:       s.snap.Owner,
		Counts:      s.snap.Counts(),
		Fingerprint: s.fingerprint,
	}
}

// Current returns a copy of the snapshot with its provenance and
// generation. The snapshot is nil before the first sync.
func (s *State) Current() (*model.Snapshot, model.Provenance, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone(), s.provenance, s.generation
}

// Generation returns the current generation counter.
func (s *State) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// TicketPermits returns the permit ids bound to ticketID.
func (s *State) TicketPermits(ticketID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil
	}
	return append([]string(nil), s.snap.TicketPermits[model.NormalizeID(ticketID)]...)
}

// EventForCapability returns the event authorized by capID.
func (s *State) EventForCapability(capID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return "", false
	}
	e, ok := s.snap.CapabilityEvents[model.NormalizeID(capID)]
	return e, ok
}
