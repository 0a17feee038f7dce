package api

import (
	"errors"
	"net/http"

	"github.com/graaaaa/suiticket-companion/internal/app"
)

// handleGetConfig handles GET /api/v1/config requests.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.GetConfig(r.Context()))
}

// handlePutConfig handles PUT /api/v1/config requests. Changes take
// effect after a restart.
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var req app.ConfigUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.cfg.UpdateConfig(r.Context(), req)
	switch {
	case errors.Is(err, app.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to save config", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
