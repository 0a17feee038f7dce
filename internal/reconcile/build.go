package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/graaaaa/suiticket-companion/internal/amount"
	"github.com/graaaaa/suiticket-companion/internal/classify"
	"github.com/graaaaa/suiticket-companion/internal/model"
	"github.com/graaaaa/suiticket-companion/internal/txbuild"
)

var (
	// ErrTicketConsumed is returned when an action needs an unused ticket.
	ErrTicketConsumed = errors.New("ticket already used")
	// ErrNotTicket is returned when an id does not name a package Ticket.
	ErrNotTicket = errors.New("object is not a ticket of this package")
	// ErrNotEvent is returned when an id does not name a package Event.
	ErrNotEvent = errors.New("object is not an event of this package")
	// ErrNotAddressOwned is returned for a ticket held by an object or shared.
	ErrNotAddressOwned = errors.New("ticket is not owned by an address")
)

// Build validates req, applies defaults, resolves what the ledger must
// supply and returns the intent to sign.
func (e *Engine) Build(ctx context.Context, req ActionRequest) (*BuiltIntent, error) {
	kind, err := txbuild.ParseKind(string(req.Kind))
	if err != nil {
		return nil, &txbuild.ValidationError{Field: "kind", Err: err}
	}
	owner := e.Owner()
	if owner == "" {
		return nil, &txbuild.ValidationError{Field: "owner", Reason: "no account is configured"}
	}
	b := e.builder.WithPackage(req.PackageID)

	out := &BuiltIntent{}
	var args any
	switch kind {
	case txbuild.KindCreateEvent:
		var a txbuild.CreateEventArgs
		if err := decodeArgs(req, &a); err != nil {
			return nil, err
		}
		out.Intent, err = b.CreateEvent(owner, a)
		args = a

	case txbuild.KindBuyTicket:
		var a txbuild.BuyTicketArgs
		if err := decodeArgs(req, &a); err != nil {
			return nil, err
		}
		if out.Quote, err = e.resolveBuy(ctx, b, owner, &a); err != nil {
			return nil, err
		}
		out.Intent, err = b.BuyTicket(owner, a)
		args = a

	case txbuild.KindIssuePermit:
		var a txbuild.IssuePermitArgs
		if err := decodeArgs(req, &a); err != nil {
			return nil, err
		}
		if err := e.resolveIssue(ctx, b, &a); err != nil {
			return nil, err
		}
		out.Intent, err = b.IssuePermit(owner, a)
		args = a

	case txbuild.KindRedeemWithPermit:
		var a txbuild.RedeemWithPermitArgs
		if err := decodeArgs(req, &a); err != nil {
			return nil, err
		}
		if err := e.resolveRedeemWithPermit(&a); err != nil {
			return nil, err
		}
		out.Intent, err = b.RedeemWithPermit(owner, a)
		args = a

	case txbuild.KindSelfRedeem:
		var a txbuild.SelfRedeemArgs
		if err := decodeArgs(req, &a); err != nil {
			return nil, err
		}
		if err := e.resolveSelfRedeem(&a); err != nil {
			return nil, err
		}
		out.Intent, err = b.SelfRedeem(owner, a)
		args = a

	case txbuild.KindGrantCap:
		var a txbuild.GrantCapArgs
		if err := decodeArgs(req, &a); err != nil {
			return nil, err
		}
		out.Intent, err = b.GrantCap(owner, a)
		args = a
	}
	if err != nil {
		return nil, err
	}

	if out.Request, err = encodeArgs(ActionRequest{Kind: kind, PackageID: req.PackageID}, args); err != nil {
		return nil, err
	}
	out.args = args
	if out.Digest, err = txbuild.Digest(out.Intent); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveBuy reads the event for its version token and price. A caller
// supplied price must match the event's.
func (e *Engine) resolveBuy(ctx context.Context, b *txbuild.Builder, owner string, a *txbuild.BuyTicketArgs) (*Quote, error) {
	if !model.ValidID(a.EventID) {
		return nil, &txbuild.ValidationError{Field: "event_id", Reason: "is not a valid 0x identifier"}
	}
	ev, err := e.readEvent(ctx, b.PackageID(), a.EventID)
	if err != nil {
		return nil, err
	}
	if a.PriceMist != 0 && a.PriceMist != ev.PriceMist {
		return nil, &txbuild.ValidationError{
			Field:  "price_mist",
			Reason: fmt.Sprintf("does not match the event price %s", ev.PriceMist),
		}
	}
	a.PriceMist = ev.PriceMist
	if strings.TrimSpace(a.SharedVersion) == "" {
		a.SharedVersion = ev.SharedVersion
	}
	if strings.TrimSpace(a.Recipient) == "" {
		a.Recipient = owner
	}

	fee, org, err := amount.SplitFee(ev.PriceMist, ev.FeeBps)
	if err != nil {
		return nil, &txbuild.ValidationError{Field: "fee_bps", Err: err}
	}
	return &Quote{PriceMist: ev.PriceMist, FeeBps: ev.FeeBps, FeeMist: fee, OrganizerMist: org}, nil
}

// ReadEvent reads one event of the configured package.
func (e *Engine) ReadEvent(ctx context.Context, id string) (model.Event, error) {
	if !model.ValidID(id) {
		return model.Event{}, &txbuild.ValidationError{Field: "event_id", Reason: "is not a valid 0x identifier"}
	}
	return e.readEvent(ctx, e.builder.PackageID(), id)
}

func (e *Engine) readEvent(ctx context.Context, pkg, id string) (model.Event, error) {
	obj, err := e.gw.GetObject(ctx, model.NormalizeID(id))
	if err != nil {
		return model.Event{}, err
	}
	r := classify.New(pkg).Classify(obj)
	if r.Kind != classify.KindEvent {
		return model.Event{}, &txbuild.ValidationError{Field: "event_id", Err: ErrNotEvent}
	}
	return *r.Event, nil
}

// resolveIssue fills the ticket owner from a lookup, refuses used tickets
// and picks a capability for the ticket's event when none was given.
func (e *Engine) resolveIssue(ctx context.Context, b *txbuild.Builder, a *txbuild.IssuePermitArgs) error {
	look, err := e.lookupTicket(ctx, b.PackageID(), a.TicketID)
	if err != nil {
		return err
	}
	if look.Consumed {
		return &txbuild.ValidationError{Field: "ticket_id", Err: ErrTicketConsumed}
	}
	if strings.TrimSpace(a.TicketOwner) == "" {
		a.TicketOwner = look.Owner
	} else if !sameAddress(a.TicketOwner, look.Owner) {
		return &txbuild.ValidationError{Field: "ticket_owner", Reason: "does not own the ticket"}
	}

	if strings.TrimSpace(a.CapabilityID) == "" {
		capID, ok := e.capabilityFor(look.EventID)
		if !ok {
			return &txbuild.ValidationError{Field: "capability_id", Reason: "no capability held for the ticket's event"}
		}
		a.CapabilityID = capID
		return nil
	}
	if ev, ok := e.state.EventForCapability(a.CapabilityID); ok && look.EventID != "" && ev != look.EventID {
		return &txbuild.ValidationError{Field: "capability_id", Reason: "authorizes a different event"}
	}
	return nil
}

// resolveRedeemWithPermit picks a held permit for the ticket.
func (e *Engine) resolveRedeemWithPermit(a *txbuild.RedeemWithPermitArgs) error {
	if t, ok := e.snapshotTicket(a.TicketID); ok && t.Consumed {
		return &txbuild.ValidationError{Field: "ticket_id", Err: ErrTicketConsumed}
	}
	if strings.TrimSpace(a.PermitID) != "" {
		return nil
	}
	permits := e.state.TicketPermits(a.TicketID)
	if len(permits) == 0 {
		return &txbuild.ValidationError{Field: "permit_id", Reason: "no permit held for this ticket"}
	}
	a.PermitID = permits[0]
	return nil
}

// resolveSelfRedeem picks a held capability for the ticket's event.
func (e *Engine) resolveSelfRedeem(a *txbuild.SelfRedeemArgs) error {
	t, ok := e.snapshotTicket(a.TicketID)
	if ok && t.Consumed {
		return &txbuild.ValidationError{Field: "ticket_id", Err: ErrTicketConsumed}
	}
	if strings.TrimSpace(a.CapabilityID) != "" {
		return nil
	}
	if !ok {
		return &txbuild.ValidationError{Field: "capability_id", Reason: "is required for a ticket not in the snapshot"}
	}
	capID, found := e.capabilityFor(t.EventID)
	if !found {
		return &txbuild.ValidationError{Field: "capability_id", Reason: "no capability held for the ticket's event"}
	}
	a.CapabilityID = capID
	return nil
}

func (e *Engine) snapshotTicket(id string) (model.Ticket, bool) {
	snap, _, _ := e.state.Current()
	if snap == nil {
		return model.Ticket{}, false
	}
	return snap.Ticket(model.NormalizeID(id))
}

func (e *Engine) capabilityFor(eventID string) (string, bool) {
	if eventID == "" {
		return "", false
	}
	snap, _, _ := e.state.Current()
	if snap == nil {
		return "", false
	}
	for _, c := range snap.Capabilities {
		if c.EventID == eventID {
			return c.ID, true
		}
	}
	return "", false
}
