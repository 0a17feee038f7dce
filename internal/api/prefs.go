package api

import (
	"net/http"

	"github.com/graaaaa/suiticket-companion/internal/store"
)

// handleGetPrefs handles GET /api/v1/prefs.
func (s *Server) handleGetPrefs(w http.ResponseWriter, r *http.Request) {
	result, err := s.prefs.Get(r.Context())
	if err != nil {
		writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handlePutPrefs handles PUT /api/v1/prefs.
func (s *Server) handlePutPrefs(w http.ResponseWriter, r *http.Request) {
	var req store.Prefs
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.prefs.Save(r.Context(), req)
	if err != nil {
		writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
