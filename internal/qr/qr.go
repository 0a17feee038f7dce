// Package qr encodes and decodes the ticket payload shown as a QR code.
//
// Decoding never fails: anything that is not a v1 ticket payload is treated
// as a plain ticket id pasted or scanned by staff.
package qr

import (
	"encoding/json"
	"strings"
)

// Kinds reported by Decode.
const (
	KindJSONV1 = "json-v1"
	KindPlain  = "plain"
)

type payloadV1 struct {
	V        int    `json:"v"`
	Kind     string `json:"kind"`
	TicketID string `json:"ticketId"`
	EventID  string `json:"eventId,omitempty"`
}

// Decoded is the result of reading a scanned or pasted payload.
type Decoded struct {
	TicketID string `json:"ticket_id"`
	EventID  string `json:"event_id,omitempty"`
	Raw      string `json:"raw"`
	Kind     string `json:"kind"`
}

// Encode returns the compact v1 JSON payload for a ticket.
// An empty eventID is omitted.
func Encode(ticketID, eventID string) string {
	b, _ := json.Marshal(payloadV1{
		V:        1,
		Kind:     "ticket",
		TicketID: strings.TrimSpace(ticketID),
		EventID:  strings.TrimSpace(eventID),
	})
	return string(b)
}

// Decode parses input as a v1 payload, falling back to a plain id.
func Decode(input string) Decoded {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Decoded{Kind: KindPlain}
	}

	// Decode loosely first: a payload with a non-string ticketId must fall
	// back to plain rather than fail.
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		v, _ := obj["v"].(float64)
		kind, _ := obj["kind"].(string)
		ticketID, isStr := obj["ticketId"].(string)
		if v == 1 && kind == "ticket" && isStr {
			eventID, _ := obj["eventId"].(string)
			return Decoded{
				TicketID: strings.TrimSpace(ticketID),
				EventID:  strings.TrimSpace(eventID),
				Raw:      raw,
				Kind:     KindJSONV1,
			}
		}
	}

	return Decoded{TicketID: raw, Raw: raw, Kind: KindPlain}
}
