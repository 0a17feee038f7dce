package app

import (
	"context"

	"github.com/graaaaa/suiticket-companion/internal/derive"
	"github.com/graaaaa/suiticket-companion/internal/ingest"
	"github.com/graaaaa/suiticket-companion/internal/model"
	"github.com/graaaaa/suiticket-companion/internal/qr"
)

// SnapshotUsecase exposes the shared snapshot.
type SnapshotUsecase interface {
	// Current returns the snapshot as last replaced or patched.
	Current(ctx context.Context) SnapshotResult
	// Sync runs one retried pass and returns the resulting state.
	Sync(ctx context.Context) (SnapshotResult, error)
	// TicketPermits lists the permits held for a ticket.
	TicketPermits(ctx context.Context, ticketID string) ([]string, error)
	// TicketQR returns the QR payload of an owned ticket.
	TicketQR(ctx context.Context, ticketID string) (QRResult, error)
}

// Syncer runs sync passes.
type Syncer interface {
	RunOnce(ctx context.Context) (*model.Snapshot, error)
	Status() ingest.Status
}

// SnapshotResult represents the snapshot response.
type SnapshotResult struct {
	Snapshot   *model.Snapshot  `json:"snapshot"`
	Provenance model.Provenance `json:"provenance,omitempty"`
	Generation uint64           `json:"generation"`
	Sync       *ingest.Status   `json:"sync,omitempty"`
}

// QRResult is a ticket's QR payload.
type QRResult struct {
	TicketID string `json:"ticket_id"`
	EventID  string `json:"event_id,omitempty"`
	Payload  string `json:"payload"`
}

// SnapshotService implements SnapshotUsecase by wrapping derive.State.
type SnapshotService struct {
	State  *derive.State
	Syncer Syncer
}

// Current returns the current snapshot.
func (s SnapshotService) Current(ctx context.Context) SnapshotResult {
	snap, prov, gen := s.State.Current()
	res := SnapshotResult{Snapshot: snap, Provenance: prov, Generation: gen}
	if s.Syncer != nil {
		st := s.Syncer.Status()
		res.Sync = &st
	}
	return res
}

// Sync runs a pass now. The sync runner publishes the replacement.
func (s SnapshotService) Sync(ctx context.Context) (SnapshotResult, error) {
	if s.Syncer == nil {
		return SnapshotResult{}, ErrNoOwner
	}
	if _, err := s.Syncer.RunOnce(ctx); err != nil {
		return SnapshotResult{}, err
	}
	return s.Current(ctx), nil
}

// TicketPermits returns the permit ids for ticketID, possibly empty.
func (s SnapshotService) TicketPermits(ctx context.Context, ticketID string) ([]string, error) {
	snap, _, _ := s.State.Current()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	if _, ok := snap.Ticket(model.NormalizeID(ticketID)); !ok {
		return nil, ErrTicketNotFound
	}
	ids := s.State.TicketPermits(ticketID)
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// TicketQR encodes the payload staff scan at the gate.
func (s SnapshotService) TicketQR(ctx context.Context, ticketID string) (QRResult, error) {
	snap, _, _ := s.State.Current()
	if snap == nil {
		return QRResult{}, ErrNoSnapshot
	}
	t, ok := snap.Ticket(model.NormalizeID(ticketID))
	if !ok {
		return QRResult{}, ErrTicketNotFound
	}
	return QRResult{
		TicketID: t.ID,
		EventID:  t.EventID,
		Payload:  qr.Encode(t.ID, t.EventID),
	}, nil
}
