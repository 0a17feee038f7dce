package api

import (
	"net/http"

	"github.com/graaaaa/suiticket-companion/internal/qr"
)

// handleSnapshot handles GET /api/v1/snapshot.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot.Current(r.Context()))
}

// handleSync handles POST /api/v1/sync. It runs one pass and returns the
// resulting snapshot.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.snapshot.Sync(r.Context())
	if err != nil {
		writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type permitsResponse struct {
	TicketID  string   `json:"ticket_id"`
	PermitIDs []string `json:"permit_ids"`
}

// handleTicketPermits handles GET /api/v1/tickets/{id}/permits.
func (s *Server) handleTicketPermits(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ids, err := s.snapshot.TicketPermits(r.Context(), id)
	if err != nil {
		writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, permitsResponse{TicketID: id, PermitIDs: ids})
}

// handleTicketQR handles GET /api/v1/tickets/{id}/qr.
func (s *Server) handleTicketQR(w http.ResponseWriter, r *http.Request) {
	result, err := s.snapshot.TicketQR(r.Context(), r.PathValue("id"))
	if err != nil {
		writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type qrDecodeRequest struct {
	Input string `json:"input"`
}

type qrDecodeResponse struct {
	TicketID string `json:"ticket_id"`
	EventID  string `json:"event_id,omitempty"`
	Kind     string `json:"kind"`
}

// handleQRDecode handles POST /api/v1/qr/decode. Scanner input is either
// a JSON payload or a bare object id.
func (s *Server) handleQRDecode(w http.ResponseWriter, r *http.Request) {
	var req qrDecodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d := qr.Decode(req.Input)
	if d.TicketID == "" {
		writeError(w, http.StatusBadRequest, "empty scan input", nil)
		return
	}
	writeJSON(w, http.StatusOK, qrDecodeResponse{TicketID: d.TicketID, EventID: d.EventID, Kind: d.Kind})
}
