package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/model"
	"github.com/graaaaa/suiticket-companion/internal/reconcile"
	"github.com/graaaaa/suiticket-companion/internal/store"
)

// handleBuildIntent handles POST /api/v1/intents. The response is the
// unsigned intent the wallet signs.
func (s *Server) handleBuildIntent(w http.ResponseWriter, r *http.Request) {
	var req reconcile.ActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	built, err := s.actions.Build(r.Context(), req)
	if err != nil {
		writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, built)
}

// handleExecute handles POST /api/v1/actions. It blocks until the action
// settles; progress is narrated on the stream meanwhile. Ledger outcomes,
// including rejection and timeout, are a 200 with the report.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req reconcile.SignedAction
	if !decodeJSON(w, r, &req) {
		return
	}
	rep, err := s.actions.Execute(r.Context(), req)
	if err != nil {
		writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// actionsResponse represents the response for the actions listing.
type actionsResponse struct {
	Items      []model.Action `json:"items"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}

// handleListActions handles GET /api/v1/actions.
func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseActionsFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	page, err := s.actions.List(r.Context(), filter)
	if err != nil {
		writeUsecaseError(w, err)
		return
	}

	resp := actionsResponse{Items: page.Items, NextCursor: page.NextCursor}
	if resp.Items == nil {
		resp.Items = []model.Action{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLookup handles GET /api/v1/lookup/{id}, the staff ticket check.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	result, err := s.actions.Lookup(r.Context(), r.PathValue("id"))
	if err != nil {
		writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// parseActionsFilter parses query parameters into an ActionFilter.
func parseActionsFilter(r *http.Request) (store.ActionFilter, error) {
	var filter store.ActionFilter
	q := r.URL.Query()

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"since", &filter.Since},
		{"until", &filter.Until},
	} {
		if v := q.Get(p.name); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return filter, fmt.Errorf("invalid %s: %w", p.name, err)
			}
			*p.dst = &t
		}
	}

	if k := q.Get("kind"); k != "" {
		filter.Kind = &k
	}
	if o := q.Get("outcome"); o != "" {
		switch model.ActionOutcome(o) {
		case model.ActionPending, model.ActionSucceeded, model.ActionFailed,
			model.ActionTimedOut, model.ActionErrored:
			filter.Outcome = &o
		default:
			return filter, fmt.Errorf("invalid outcome: %s", o)
		}
	}
	if o := q.Get("owner"); o != "" {
		owner := model.NormalizeID(o)
		filter.Owner = &owner
	}

	if l := q.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 1 {
			return filter, fmt.Errorf("invalid limit: %s", l)
		}
		filter.Limit = limit
	}

	if c := q.Get("cursor"); c != "" {
		filter.Cursor = &c
	}

	return filter, nil
}
