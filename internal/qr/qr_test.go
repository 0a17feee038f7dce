package qr

import "testing"

func TestEncode(t *testing.T) {
	got := Encode(" 0xticket ", "0xevent")
	want := `{"v":1,"kind":"ticket","ticketId":"0xticket","eventId":"0xevent"}`
	if got != want {
		t.Errorf("Encode = %s, want %s", got, want)
	}

	got = Encode("0xticket", "")
	want = `{"v":1,"kind":"ticket","ticketId":"0xticket"}`
	if got != want {
		t.Errorf("Encode without event = %s, want %s", got, want)
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	d := Decode(Encode("0xabc", "0xdef"))
	if d.Kind != KindJSONV1 || d.TicketID != "0xabc" || d.EventID != "0xdef" {
		t.Errorf("Decode = %+v", d)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		kind     string
		ticketID string
		eventID  string
	}{
		{"empty", "", KindPlain, "", ""},
		{"whitespace", "   \n", KindPlain, "", ""},
		{"plain id", "  0xabc123  ", KindPlain, "0xabc123", ""},
		{"trims payload values", `{"v":1,"kind":"ticket","ticketId":" 0xa ","eventId":" 0xe "}`, KindJSONV1, "0xa", "0xe"},
		{"wrong version", `{"v":2,"kind":"ticket","ticketId":"0xa"}`, KindPlain, `{"v":2,"kind":"ticket","ticketId":"0xa"}`, ""},
		{"wrong kind", `{"v":1,"kind":"event","ticketId":"0xa"}`, KindPlain, `{"v":1,"kind":"event","ticketId":"0xa"}`, ""},
		{"numeric ticket id", `{"v":1,"kind":"ticket","ticketId":5}`, KindPlain, `{"v":1,"kind":"ticket","ticketId":5}`, ""},
		{"non-string event id ignored", `{"v":1,"kind":"ticket","ticketId":"0xa","eventId":7}`, KindJSONV1, "0xa", ""},
		{"json array", `[1,2]`, KindPlain, `[1,2]`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decode(tt.in)
			if d.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", d.Kind, tt.kind)
			}
			if d.TicketID != tt.ticketID {
				t.Errorf("TicketID = %q, want %q", d.TicketID, tt.ticketID)
			}
			if d.EventID != tt.eventID {
				t.Errorf("EventID = %q, want %q", d.EventID, tt.eventID)
			}
		})
	}
}
