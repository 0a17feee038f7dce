package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/graaaaa/suiticket-companion/internal/app"
	"github.com/graaaaa/suiticket-companion/internal/ingest"
	"github.com/graaaaa/suiticket-companion/internal/ledger"
	"github.com/graaaaa/suiticket-companion/internal/reconcile"
	"github.com/graaaaa/suiticket-companion/internal/registry"
	"github.com/graaaaa/suiticket-companion/internal/store"
	"github.com/graaaaa/suiticket-companion/internal/txbuild"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// errorResponse is the standard error response format.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to the response.
// It buffers the encoding to detect errors before writing headers.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
		writeErrorFallback(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}

// writeError writes a JSON error response with consistent format.
// For 5xx errors, the underlying error is logged for debugging.
// The public message is what clients see; use generic messages for 5xx.
func writeError(w http.ResponseWriter, status int, public string, err error) {
	if public == "" {
		public = http.StatusText(status)
	}
	if status >= 500 && err != nil {
		slog.Error("internal error", "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: public})
}

// writeUsecaseError maps a use case error to a status code.
func writeUsecaseError(w http.ResponseWriter, err error) {
	var adapter *ledger.AdapterError
	switch {
	case errors.Is(err, txbuild.ErrInvalidArgument),
		errors.Is(err, txbuild.ErrUnknownAction),
		errors.Is(err, txbuild.ErrMissingSharedVersion),
		errors.Is(err, store.ErrInvalidCursor),
		errors.Is(err, store.ErrInvalidPrefs),
		errors.Is(err, app.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, app.ErrTicketNotFound):
		writeError(w, http.StatusNotFound, err.Error(), err)
	case errors.Is(err, reconcile.ErrNotTicket),
		errors.Is(err, reconcile.ErrNotEvent),
		errors.Is(err, reconcile.ErrNotAddressOwned),
		errors.Is(err, reconcile.ErrTicketConsumed):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), err)
	case errors.Is(err, app.ErrNoSnapshot),
		errors.Is(err, app.ErrNoOwner),
		errors.Is(err, ingest.ErrNoOwner),
		errors.Is(err, registry.ErrNotConfigured):
		writeError(w, http.StatusConflict, err.Error(), err)
	case errors.Is(err, txbuild.ErrNotImplemented):
		writeError(w, http.StatusNotImplemented, err.Error(), err)
	case errors.As(err, &adapter):
		writeError(w, http.StatusBadGateway, "ledger unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

// decodeJSON strictly decodes a bounded request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	return true
}

// writeErrorFallback writes a plain text error when JSON encoding fails.
// This is a last-resort fallback to avoid infinite recursion.
func writeErrorFallback(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(message))
}
