package api

import (
	"net/http"
)

// handleEvent handles GET /api/v1/events/{id}.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.events.Event(r.Context(), r.PathValue("id"))
	if err != nil {
		writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// handleRegistry handles GET /api/v1/registry.
func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	result, err := s.events.Registry(r.Context())
	if err != nil {
		writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// maxNameLookup bounds one event-names request.
const maxNameLookup = 200

type eventNamesRequest struct {
	IDs []string `json:"ids"`
}

type eventNamesResponse struct {
	Names map[string]string `json:"names"`
}

// handleEventNames handles POST /api/v1/event-names. Unknown ids are
// simply absent from the result.
func (s *Server) handleEventNames(w http.ResponseWriter, r *http.Request) {
	var req eventNamesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) > maxNameLookup {
		writeError(w, http.StatusBadRequest, "too many ids", nil)
		return
	}
	names, err := s.events.Names(r.Context(), req.IDs)
	if err != nil {
		writeUsecaseError(w, err)
		return
	}
	if names == nil {
		names = map[string]string{}
	}
	writeJSON(w, http.StatusOK, eventNamesResponse{Names: names})
}
