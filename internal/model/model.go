// Package model provides the domain entities shared by ingest, derive,
// reconcile, store and api.
package model

import (
	"strings"

	"github.com/graaaaa/suiticket-companion/internal/amount"
)

// Provenance says whether a snapshot came from a full ledger read or from
// a locally applied patch that has not yet been confirmed by one.
type Provenance string

const (
	Confirmed  Provenance = "confirmed"
	Optimistic Provenance = "optimistic"
)

// Event is a shared ticketed event object.
type Event struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	PriceMist     amount.Mist `json:"price_mist"`
	FeeBps        uint16      `json:"fee_bps"`
	Organizer     string      `json:"organizer"`
	Platform      string      `json:"platform"`
	SharedVersion string      `json:"shared_version,omitempty"`
}

// Capability authorizes redemption and permit issuance for one event.
// The on-chain type is GateCap.
type Capability struct {
	ID      string `json:"id"`
	Owner   string `json:"owner"`
	EventID string `json:"event_id"`
}

// Ticket is an owned admission to an event. Consumed never reverts.
type Ticket struct {
	ID       string `json:"id"`
	Owner    string `json:"owner"`
	EventID  string `json:"event_id"`
	Consumed bool   `json:"consumed"`
}

// Permit is a single-use redemption authorization bound to one ticket.
// The on-chain type is RedeemPermit.
type Permit struct {
	ID       string `json:"id"`
	TicketID string `json:"ticket_id"`
	EventID  string `json:"event_id"`
}

// NormalizeID trims and lower-cases a hex identifier or address.
func NormalizeID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsObjectID reports whether s is 0x followed by 1 to 64 hex digits.
func IsObjectID(s string) bool {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	hex := s[2:]
	if len(hex) == 0 || len(hex) > 64 {
		return false
	}
	for i := 0; i < len(hex); i++ {
		c := hex[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// ValidID is the identifier check applied to user-supplied ids:
// hex-shaped and longer than 10 characters, so that short placeholders
// like "0x1" pasted into a form are refused.
func ValidID(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) > 10 && IsObjectID(s)
}
