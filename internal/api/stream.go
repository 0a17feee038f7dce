package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// heartbeatInterval is the interval for sending SSE heartbeat comments.
const heartbeatInterval = 20 * time.Second

// handleStream handles GET /api/v1/stream (SSE).
//
// A client first receives the current snapshot, then status and snapshot
// messages as they are published. There is no replay: a reconnecting
// client catches up from the initial snapshot.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// Subscribe before reading the snapshot so no change slips between them.
	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	fmt.Fprintf(w, ": connected\n\n")
	if s.snapshot != nil {
		writeSSE(w, &Message{Event: MessageSnapshot, Data: s.snapshot.Current(r.Context())})
	}
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case m, ok := <-sub.Status():
			if !ok {
				return
			}
			writeSSE(w, m)
			flusher.Flush()

		case m, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			writeSSE(w, m)
			flusher.Flush()

		case <-ticker.C:
			fmt.Fprintf(w, ":\n\n")
			flusher.Flush()

		case <-ctx.Done():
			return

		case <-sub.Done():
			return
		}
	}
}

// writeSSE writes a single message in SSE format.
func writeSSE(w io.Writer, m *Message) {
	data, err := json.Marshal(m.Data)
	if err != nil {
		slog.Warn("sse marshal failed", "event", m.Event, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\n", m.Event)
	fmt.Fprintf(w, "data: %s\n\n", data)
}
