package model

import (
	"sort"
	"time"
)

// Snapshot is the classified owned-object set of one account at one moment,
// plus the indexes derived from it. A snapshot is immutable once published;
// code that needs a modified view works on Clone().
type Snapshot struct {
	Owner        string       `json:"owner"`
	PackageID    string       `json:"package_id"`
	Events       []Event      `json:"events"`
	Capabilities []Capability `json:"capabilities"`
	Tickets      []Ticket     `json:"tickets"`
	Permits      []Permit     `json:"permits"`

	// TicketPermits maps a ticket id to the ids of permits bound to it.
	TicketPermits map[string][]string `json:"ticket_permits"`
	// CapabilityEvents maps a capability id to the event it authorizes.
	CapabilityEvents map[string]string `json:"capability_events"`

	SyncedAt time.Time `json:"synced_at"`
}

// NewSnapshot builds a snapshot with entities sorted by id and indexes derived.
func NewSnapshot(owner, packageID string, events []Event, caps []Capability, tickets []Ticket, permits []Permit, syncedAt time.Time) *Snapshot {
	s := &Snapshot{
		Owner:        owner,
		PackageID:    packageID,
		Events:       events,
		Capabilities: caps,
		Tickets:      tickets,
		Permits:      permits,
		SyncedAt:     syncedAt,
	}
	s.Reindex()
	return s
}

// Reindex sorts the entity lists and rebuilds the derived indexes.
// Call it after mutating a cloned snapshot.
func (s *Snapshot) Reindex() {
	if s.Events == nil {
		s.Events = []Event{}
	}
	if s.Capabilities == nil {
		s.Capabilities = []Capability{}
	}
	if s.Tickets == nil {
		s.Tickets = []Ticket{}
	}
	if s.Permits == nil {
		s.Permits = []Permit{}
	}
	sort.Slice(s.Events, func(i, j int) bool { return s.Events[i].ID < s.Events[j].ID })
	sort.Slice(s.Capabilities, func(i, j int) bool { return s.Capabilities[i].ID < s.Capabilities[j].ID })
	sort.Slice(s.Tickets, func(i, j int) bool { return s.Tickets[i].ID < s.Tickets[j].ID })
	sort.Slice(s.Permits, func(i, j int) bool { return s.Permits[i].ID < s.Permits[j].ID })

	s.TicketPermits = make(map[string][]string)
	for _, p := range s.Permits {
		if p.TicketID == "" {
			continue
		}
		// Permits are already sorted, so each list comes out sorted.
		s.TicketPermits[p.TicketID] = append(s.TicketPermits[p.TicketID], p.ID)
	}

	s.CapabilityEvents = make(map[string]string, len(s.Capabilities))
	for _, c := range s.Capabilities {
		if c.EventID != "" {
			s.CapabilityEvents[c.ID] = c.EventID
		}
	}
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Events = cloneSlice(s.Events)
	c.Capabilities = cloneSlice(s.Capabilities)
	c.Tickets = cloneSlice(s.Tickets)
	c.Permits = cloneSlice(s.Permits)
	c.TicketPermits = make(map[string][]string, len(s.TicketPermits))
	for k, v := range s.TicketPermits {
		c.TicketPermits[k] = append([]string(nil), v...)
	}
	c.CapabilityEvents = make(map[string]string, len(s.CapabilityEvents))
	for k, v := range s.CapabilityEvents {
		c.CapabilityEvents[k] = v
	}
	return &c
}

// cloneSlice copies in, keeping an empty slice empty rather than nil.
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// Ticket returns the ticket with the given id.
func (s *Snapshot) Ticket(id string) (Ticket, bool) {
	for _, t := range s.Tickets {
		if t.ID == id {
			return t, true
		}
	}
	return Ticket{}, false
}

// Capability returns the capability with the given id.
func (s *Snapshot) Capability(id string) (Capability, bool) {
	for _, c := range s.Capabilities {
		if c.ID == id {
			return c, true
		}
	}
	return Capability{}, false
}

// Permit returns the permit with the given id.
func (s *Snapshot) Permit(id string) (Permit, bool) {
	for _, p := range s.Permits {
		if p.ID == id {
			return p, true
		}
	}
	return Permit{}, false
}

// Counts summarizes a snapshot for status lines and change notices.
type Counts struct {
	Events       int `json:"events"`
	Capabilities int `json:"capabilities"`
	Tickets      int `json:"tickets"`
	Permits      int `json:"permits"`
}

// Counts returns the entity counts.
func (s *Snapshot) Counts() Counts {
	if s == nil {
		return Counts{}
	}
	return Counts{
		Events:       len(s.Events),
		Capabilities: len(s.Capabilities),
		Tickets:      len(s.Tickets),
		Permits:      len(s.Permits),
	}
}
