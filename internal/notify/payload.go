package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/model"
	"github.com/graaaaa/suiticket-companion/internal/reconcile"
)

// Discord embed color constants.
const (
	ColorGreen  = 0x00FF00 // succeeded
	ColorRed    = 0xFF0000 // failed or errored
	ColorOrange = 0xFFA500 // timed out
)

// MaxEmbedsPerRequest is the Discord API limit for embeds per message.
const MaxEmbedsPerRequest = 10

// DiscordPayload represents a Discord webhook request body.
type DiscordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []DiscordEmbed `json:"embeds,omitempty"`
}

// DiscordEmbed represents a Discord embed.
type DiscordEmbed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// BuildPayloads creates Discord payloads from batched reports, one embed
// per report. It returns several payloads when reports exceed
// MaxEmbedsPerRequest.
func BuildPayloads(reports []*reconcile.Report) []DiscordPayload {
	if len(reports) == 0 {
		return nil
	}
	embeds := make([]DiscordEmbed, 0, len(reports))
	for _, r := range reports {
		embeds = append(embeds, buildEmbed(r))
	}
	return splitIntoPayloads(embeds)
}

var kindTitles = map[string]string{
	"create_event":       "Create Event",
	"buy_ticket":         "Buy Ticket",
	"issue_permit":       "Issue Permit",
	"redeem_with_permit": "Redeem With Permit",
	"redeem":             "Redeem",
	"grant_cap":          "Grant Capability",
}

func buildEmbed(r *reconcile.Report) DiscordEmbed {
	title, ok := kindTitles[r.Kind]
	if !ok {
		title = r.Kind
	}

	var color int
	switch r.Outcome {
	case model.ActionSucceeded:
		color = ColorGreen
	case model.ActionTimedOut:
		color = ColorOrange
	default:
		color = ColorRed
	}

	var lines []string
	if r.Message != "" {
		lines = append(lines, fmt.Sprintf("**%s**", r.Message))
	}
	if r.CreatedID != "" {
		lines = append(lines, fmt.Sprintf("Object: `%s`", r.CreatedID))
	}
	if r.Digest != "" {
		lines = append(lines, fmt.Sprintf("Digest: `%s`", r.Digest))
	}
	if r.Warning != "" {
		lines = append(lines, "Warning: "+r.Warning)
	}

	ts := r.SettledAt
	if ts.IsZero() {
		ts = r.CreatedAt
	}
	embed := DiscordEmbed{
		Title:       title,
		Description: strings.Join(lines, "\n"),
		Color:       color,
	}
	if !ts.IsZero() {
		embed.Timestamp = ts.Format(time.RFC3339)
	}
	return embed
}

func splitIntoPayloads(embeds []DiscordEmbed) []DiscordPayload {
	if len(embeds) == 0 {
		return nil
	}

	var payloads []DiscordPayload
	for i := 0; i < len(embeds); i += MaxEmbedsPerRequest {
		end := min(i+MaxEmbedsPerRequest, len(embeds))
		payloads = append(payloads, DiscordPayload{Embeds: embeds[i:end]})
	}
	return payloads
}
