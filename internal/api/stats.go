package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/app"
)

// handleStats handles GET /api/v1/stats?date=YYYY-MM-DD&days=N. The date
// is a local calendar day and is the last day of the window.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var q app.StatsQuery
	if v := r.URL.Query().Get("date"); v != "" {
		day, err := time.ParseInLocation(time.DateOnly, v, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD", nil)
			return
		}
		q.Day = day
	}
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "days must be an integer", nil)
			return
		}
		q.Days = n
	}

	result, err := s.stats.GetActionStats(r.Context(), q)
	if err != nil {
		writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
