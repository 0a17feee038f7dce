package ledgertest

import (
	"strconv"

	"github.com/graaaaa/suiticket-companion/internal/ledger"
)

// Object constructors in the node's field shapes.

// EventObject is a shared Event.
func EventObject(pkg, id, name string, priceMist uint64, feeBps uint16, organizer, sharedVersion string) ledger.ObjectView {
	return ledger.ObjectView{
		ID:    id,
		Type:  pkg + "::ticket::Event",
		Owner: ledger.Owner{Kind: ledger.OwnerShared, InitialSharedVersion: sharedVersion},
		Fields: map[string]any{
			"name":       name,
			"price_mist": strconv.FormatUint(priceMist, 10),
			"fee_bps":    float64(feeBps),
			"organizer":  organizer,
			"platform":   organizer,
		},
	}
}

// TicketObject is a Ticket owned by owner.
func TicketObject(pkg, id, owner, eventID string, used bool) ledger.ObjectView {
	return ledger.ObjectView{
		ID:     id,
		Type:   pkg + "::ticket::Ticket",
		Owner:  ledger.Owner{Kind: ledger.OwnerAddress, Address: owner},
		Fields: map[string]any{"event_id": eventID, "used": used},
	}
}

// CapObject is a GateCap owned by owner.
func CapObject(pkg, id, owner, eventID string) ledger.ObjectView {
	return ledger.ObjectView{
		ID:     id,
		Type:   pkg + "::ticket::GateCap",
		Owner:  ledger.Owner{Kind: ledger.OwnerAddress, Address: owner},
		Fields: map[string]any{"event_id": eventID},
	}
}

// PermitObject is a RedeemPermit owned by owner.
func PermitObject(pkg, id, owner, ticketID, eventID string) ledger.ObjectView {
	return ledger.ObjectView{
		ID:     id,
		Type:   pkg + "::ticket::RedeemPermit",
		Owner:  ledger.Owner{Kind: ledger.OwnerAddress, Address: owner},
		Fields: map[string]any{"ticket_id": ticketID, "event_id": eventID},
	}
}
