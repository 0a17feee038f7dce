package reconcile

import (
	"context"
	"fmt"

	"github.com/graaaaa/suiticket-companion/internal/classify"
	"github.com/graaaaa/suiticket-companion/internal/ledger"
	"github.com/graaaaa/suiticket-companion/internal/model"
	"github.com/graaaaa/suiticket-companion/internal/txbuild"
)

// TicketLookup is what staff see after scanning a ticket.
type TicketLookup struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Owner    string `json:"owner"`
	EventID  string `json:"event_id"`
	Consumed bool   `json:"consumed"`
	// PermitIDs are permits for this ticket held by the current account.
	PermitIDs []string `json:"permit_ids"`
	// CapabilityID is a held capability for the ticket's event, if any.
	CapabilityID string `json:"capability_id,omitempty"`
}

// LookupTicket reads a ticket directly from the ledger. The object must be
// a Ticket of the configured package held by an address.
func (e *Engine) LookupTicket(ctx context.Context, id string) (TicketLookup, error) {
	return e.lookupTicket(ctx, e.builder.PackageID(), id)
}

func (e *Engine) lookupTicket(ctx context.Context, pkg, id string) (TicketLookup, error) {
	if !model.ValidID(id) {
		return TicketLookup{}, &txbuild.ValidationError{Field: "ticket_id", Reason: "is not a valid 0x identifier"}
	}
	id = model.NormalizeID(id)
	obj, err := e.gw.GetObject(ctx, id)
	if err != nil {
		return TicketLookup{}, err
	}
	if obj.Missing {
		return TicketLookup{}, fmt.Errorf("ticket %s: %w", id, ledger.ErrNotFound)
	}
	r := classify.New(pkg).Classify(obj)
	if r.Kind != classify.KindTicket {
		return TicketLookup{}, &txbuild.ValidationError{Field: "ticket_id", Err: ErrNotTicket}
	}
	if obj.Owner.Kind != ledger.OwnerAddress || obj.Owner.Address == "" {
		return TicketLookup{}, &txbuild.ValidationError{Field: "ticket_id", Err: ErrNotAddressOwned}
	}

	out := TicketLookup{
		ID:        id,
		Type:      ledger.StripTypeParams(obj.Type),
		Owner:     model.NormalizeID(obj.Owner.Address),
		EventID:   r.Ticket.EventID,
		Consumed:  r.Ticket.Consumed,
		PermitIDs: e.state.TicketPermits(id),
	}
	if out.PermitIDs == nil {
		out.PermitIDs = []string{}
	}
	if capID, ok := e.capabilityFor(out.EventID); ok {
		out.CapabilityID = capID
	}
	return out, nil
}
