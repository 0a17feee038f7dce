package api

import (
	"net/http"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/api/sseauth"
)

// streamPath is where issued tokens are accepted as ?token=.
const streamPath = "/api/v1/stream"

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int       `json:"expires_in"`
	ExpiresAt time.Time `json:"expires_at"`
	StreamURL string    `json:"stream_url"`
}

// handleAuthToken exchanges Basic Auth for a short-lived stream token.
// EventSource cannot send an Authorization header, so browsers open the
// stream with the token in the query string instead.
func (s *Server) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if len(s.sseSecret) == 0 {
		writeError(w, http.StatusServiceUnavailable, "stream tokens not configured", nil)
		return
	}

	issued := time.Now().UTC()
	token, err := sseauth.GenerateToken(s.sseSecret, sseauth.ScopeSSE, issued)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token", err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresIn: int(sseauth.DefaultTTL / time.Second),
		ExpiresAt: issued.Add(sseauth.DefaultTTL).Truncate(time.Second),
		StreamURL: streamPath + "?token=" + token,
	})
}
