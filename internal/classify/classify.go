// Package classify maps raw ledger objects onto the ticketing domain.
//
// Classification is pure: it looks only at the object's type tag and
// fields, never at the network.
package classify

import (
	"strings"

	"github.com/graaaaa/suiticket-companion/internal/ledger"
	"github.com/graaaaa/suiticket-companion/internal/model"
)

// Kind is the domain kind of an object.
type Kind int

const (
	Ignored Kind = iota
	KindEvent
	KindCapability
	KindTicket
	KindPermit
)

func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindCapability:
		return "capability"
	case KindTicket:
		return "ticket"
	case KindPermit:
		return "permit"
	default:
		return "ignored"
	}
}

// Type name suffixes within the ticket module.
const (
	SuffixEvent      = "::Event"
	SuffixCapability = "::GateCap"
	SuffixTicket     = "::Ticket"
	SuffixPermit     = "::RedeemPermit"
)

// ModuleName is the Move module holding the ticketing types.
const ModuleName = "ticket"

// Result is the classification of one object. Exactly one of the entity
// pointers is set unless Kind is Ignored. Complete is false when a field
// the entity needs was missing or malformed; the entity is still returned
// with zero values for those fields.
type Result struct {
	Kind       Kind
	Event      *model.Event
	Capability *model.Capability
	Ticket     *model.Ticket
	Permit     *model.Permit
	Complete   bool
}

// Classifier recognizes objects of one deployed package.
type Classifier struct {
	prefix string
}

// New creates a Classifier for packageID.
func New(packageID string) *Classifier {
	return &Classifier{prefix: model.NormalizeID(packageID) + "::" + ModuleName + "::"}
}

// TypePrefix returns "<pkg>::ticket::".
func (c *Classifier) TypePrefix() string {
	return c.prefix
}

// KindOf classifies a type tag alone.
func (c *Classifier) KindOf(typeTag string) Kind {
	t := ledger.StripTypeParams(typeTag)
	if !strings.HasPrefix(strings.ToLower(t), c.prefix) {
		return Ignored
	}
	switch {
	case strings.HasSuffix(t, SuffixEvent):
		return KindEvent
	case strings.HasSuffix(t, SuffixCapability):
		return KindCapability
	case strings.HasSuffix(t, SuffixTicket):
		return KindTicket
	case strings.HasSuffix(t, SuffixPermit):
		return KindPermit
	}
	return Ignored
}

// Classify converts one object. Objects outside the package, unknown types
// and missing objects are Ignored.
func (c *Classifier) Classify(obj ledger.ObjectView) Result {
	if obj.Missing || obj.Type == "" {
		return Result{Kind: Ignored}
	}
	id := model.NormalizeID(obj.ID)
	f := obj.Fields

	switch c.KindOf(obj.Type) {
	case KindEvent:
		e := &model.Event{ID: id, SharedVersion: obj.Owner.InitialSharedVersion}
		var ok [5]bool
		e.Name, ok[0] = Bytes(f, "name")
		e.PriceMist, ok[1] = Mist(f, "price_mist")
		var bps uint64
		bps, ok[2] = Uint(f, "fee_bps")
		if bps <= 10_000 {
			e.FeeBps = uint16(bps)
		} else {
			ok[2] = false
		}
		e.Organizer, ok[3] = Address(f, "organizer")
		e.Platform, ok[4] = Address(f, "platform")
		return Result{Kind: KindEvent, Event: e, Complete: all(ok[:])}

	case KindCapability:
		cp := &model.Capability{ID: id, Owner: obj.Owner.Address}
		var ok bool
		cp.EventID, ok = ID(f, "event_id")
		return Result{Kind: KindCapability, Capability: cp, Complete: ok}

	case KindTicket:
		t := &model.Ticket{ID: id, Owner: obj.Owner.Address}
		var ok [2]bool
		t.EventID, ok[0] = ID(f, "event_id")
		t.Consumed, ok[1] = Bool(f, "used")
		if !ok[1] {
			t.Consumed, ok[1] = Bool(f, "consumed")
		}
		return Result{Kind: KindTicket, Ticket: t, Complete: all(ok[:])}

	case KindPermit:
		p := &model.Permit{ID: id}
		var ok [2]bool
		p.TicketID, ok[0] = ID(f, "ticket_id")
		p.EventID, ok[1] = ID(f, "event_id")
		return Result{Kind: KindPermit, Permit: p, Complete: all(ok[:])}
	}
	return Result{Kind: Ignored}
}

func all(oks []bool) bool {
	for _, ok := range oks {
		if !ok {
			return false
		}
	}
	return true
}

// Partitioned is a set of objects split by kind. Each kept id lands in
// exactly one bucket; a repeated id keeps its first occurrence.
type Partitioned struct {
	Events       []model.Event
	Capabilities []model.Capability
	Tickets      []model.Ticket
	Permits      []model.Permit
	Ignored      int
	Incomplete   int
	// Malformed holds the objects counted in Incomplete.
	Malformed    []ledger.ObjectView
}

// Partition classifies objs.
func (c *Classifier) Partition(objs []ledger.ObjectView) Partitioned {
	var p Partitioned
	seen := make(map[string]bool, len(objs))
	for _, obj := range objs {
		r := c.Classify(obj)
		if r.Kind == Ignored {
			p.Ignored++
			continue
		}
		id := model.NormalizeID(obj.ID)
		if seen[id] {
			continue
		}
		seen[id] = true
		if !r.Complete {
			p.Incomplete++
			p.Malformed = append(p.Malformed, obj)
		}
		switch r.Kind {
		case KindEvent:
			p.Events = append(p.Events, *r.Event)
		case KindCapability:
			p.Capabilities = append(p.Capabilities, *r.Capability)
		case KindTicket:
			p.Tickets = append(p.Tickets, *r.Ticket)
		case KindPermit:
			p.Permits = append(p.Permits, *r.Permit)
		}
	}
	return p
}
