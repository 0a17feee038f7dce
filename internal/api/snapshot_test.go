package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/graaaaa/suiticket-companion/internal/app"
	"github.com/graaaaa/suiticket-companion/internal/ingest"
	"github.com/graaaaa/suiticket-companion/internal/qr"
)

func TestSnapshotEndpoint(t *testing.T) {
	mock := &MockSnapshotService{CurrentFunc: func(ctx context.Context) app.SnapshotResult {
		return snapshotFixture()
	}}
	server := NewServer(":8080", app.HealthService{}, WithSnapshotUsecase(mock))

	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp app.SnapshotResult
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Snapshot == nil || len(resp.Snapshot.Tickets) != 1 || resp.Generation != 3 {
		t.Errorf("snapshot response = %+v", resp)
	}
}

func TestSyncEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no owner", app.ErrNoOwner, http.StatusConflict},
		{"pagination", ingest.ErrPaginationRunaway, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockSnapshotService{SyncFunc: func(ctx context.Context) (app.SnapshotResult, error) {
				return app.SnapshotResult{}, tt.err
			}}
			server := NewServer(":8080", app.HealthService{}, WithSnapshotUsecase(mock))

			rec := httptest.NewRecorder()
			server.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestTicketPermitsEndpoint(t *testing.T) {
	var gotID string
	mock := &MockSnapshotService{TicketPermitsFunc: func(ctx context.Context, id string) ([]string, error) {
		gotID = id
		if id == "0xmissing" {
			return nil, app.ErrTicketNotFound
		}
		return []string{"0xc1"}, nil
	}}
	server := NewServer(":8080", app.HealthService{}, WithSnapshotUsecase(mock))

	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tickets/0xb1/permits", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotID != "0xb1" {
		t.Errorf("path id = %q", gotID)
	}
	var resp permitsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.PermitIDs) != 1 || resp.PermitIDs[0] != "0xc1" {
		t.Errorf("permits = %+v", resp)
	}

	rec = httptest.NewRecorder()
	server.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tickets/0xmissing/permits", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestTicketQREndpoint(t *testing.T) {
	mock := &MockSnapshotService{TicketQRFunc: func(ctx context.Context, id string) (app.QRResult, error) {
		return app.QRResult{TicketID: id, EventID: "0xe1", Payload: qr.Encode(id, "0xe1")}, nil
	}}
	server := NewServer(":8080", app.HealthService{}, WithSnapshotUsecase(mock))

	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tickets/0xb1/qr", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp app.QRResult
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if d := qr.Decode(resp.Payload); d.TicketID != "0xb1" || d.EventID != "0xe1" {
		t.Errorf("payload decodes to %+v", d)
	}
}

func TestQRDecodeEndpoint(t *testing.T) {
	server := NewServer(":8080", app.HealthService{})

	tests := []struct {
		name     string
		body     string
		want     int
		wantKind string
	}{
		{"json payload", `{"input":"{\"v\":1,\"kind\":\"ticket\",\"ticketId\":\"0xb1\"}"}`, http.StatusOK, qr.KindJSONV1},
		{"plain id", `{"input":"  0xb1  "}`, http.StatusOK, qr.KindPlain},
		{"empty", `{"input":"   "}`, http.StatusBadRequest, ""},
		{"unknown field", `{"text":"0xb1"}`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/qr/decode", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			server.mux.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			if tt.want != http.StatusOK {
				return
			}
			var resp qrDecodeResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.TicketID != "0xb1" || resp.Kind != tt.wantKind {
				t.Errorf("decode = %+v", resp)
			}
		})
	}
}
