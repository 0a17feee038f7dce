package reconcile

import (
	"github.com/graaaaa/suiticket-companion/internal/classify"
	"github.com/graaaaa/suiticket-companion/internal/model"
	"github.com/graaaaa/suiticket-companion/internal/txbuild"
)

// Created-object type suffixes reported by finality.
var (
	createdEvent      = "::" + classify.ModuleName + classify.SuffixEvent
	createdCapability = "::" + classify.ModuleName + classify.SuffixCapability
	createdTicket     = "::" + classify.ModuleName + classify.SuffixTicket
	createdPermit     = "::" + classify.ModuleName + classify.SuffixPermit
)

// createdSuffixes lists the objects an action is expected to create.
// The first entry is the one reported as the action's CreatedID.
func createdSuffixes(kind txbuild.Kind) []string {
	switch kind {
	case txbuild.KindCreateEvent:
		return []string{createdEvent, createdCapability}
	case txbuild.KindBuyTicket:
		return []string{createdTicket}
	case txbuild.KindIssuePermit:
		return []string{createdPermit}
	}
	return nil
}

// optimisticPatch returns the snapshot edit that a successful action
// implies with certainty, or nil when it implies none for this account.
func optimisticPatch(owner string, args any, created map[string]string) func(*model.Snapshot) bool {
	switch a := args.(type) {
	case txbuild.SelfRedeemArgs:
		return consumeTicket(a.TicketID, "")

	case txbuild.RedeemWithPermitArgs:
		return consumeTicket(a.TicketID, a.PermitID)

	case txbuild.BuyTicketArgs:
		id := created[createdTicket]
		if id == "" || !sameAddress(a.Recipient, owner) {
			return nil
		}
		t := model.Ticket{ID: model.NormalizeID(id), Owner: owner, EventID: model.NormalizeID(a.EventID)}
		return func(s *model.Snapshot) bool {
			if _, ok := s.Ticket(t.ID); ok {
				return false
			}
			s.Tickets = append(s.Tickets, t)
			return true
		}

	case txbuild.CreateEventArgs:
		capID := created[createdCapability]
		if capID == "" {
			return nil
		}
		c := model.Capability{
			ID:      model.NormalizeID(capID),
			Owner:   owner,
			EventID: model.NormalizeID(created[createdEvent]),
		}
		return func(s *model.Snapshot) bool {
			if _, ok := s.Capability(c.ID); ok {
				return false
			}
			s.Capabilities = append(s.Capabilities, c)
			return true
		}

	case txbuild.IssuePermitArgs:
		id := created[createdPermit]
		if id == "" || !sameAddress(a.TicketOwner, owner) {
			return nil
		}
		ticketID := model.NormalizeID(a.TicketID)
		return func(s *model.Snapshot) bool {
			if _, ok := s.Permit(model.NormalizeID(id)); ok {
				return false
			}
			p := model.Permit{ID: model.NormalizeID(id), TicketID: ticketID}
			if t, ok := s.Ticket(ticketID); ok {
				p.EventID = t.EventID
			}
			s.Permits = append(s.Permits, p)
			return true
		}
	}
	return nil
}

// consumeTicket marks a ticket used and drops the spent permit.
func consumeTicket(ticketID, permitID string) func(*model.Snapshot) bool {
	ticketID = model.NormalizeID(ticketID)
	permitID = model.NormalizeID(permitID)
	return func(s *model.Snapshot) bool {
		changed := false
		for i := range s.Tickets {
			if s.Tickets[i].ID == ticketID && !s.Tickets[i].Consumed {
				s.Tickets[i].Consumed = true
				changed = true
			}
		}
		if permitID != "" {
			kept := s.Permits[:0:0]
			for _, p := range s.Permits {
				if p.ID == permitID {
					changed = true
					continue
				}
				kept = append(kept, p)
			}
			s.Permits = kept
		}
		return changed
	}
}
