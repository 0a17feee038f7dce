package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/graaaaa/suiticket-companion/internal/app"
	"github.com/graaaaa/suiticket-companion/internal/store"
)

// MockPrefsService implements app.PrefsUsecase for testing.
type MockPrefsService struct {
	saved store.Prefs
}

func (m *MockPrefsService) Get(ctx context.Context) (app.PrefsResult, error) {
	return app.PrefsResult{Prefs: m.saved, RecentEvents: []string{"0xe1"}}, nil
}

func (m *MockPrefsService) Save(ctx context.Context, p store.Prefs) (app.PrefsResult, error) {
	if err := p.Validate(); err != nil {
		return app.PrefsResult{}, err
	}
	m.saved = p
	return m.Get(ctx)
}

// MockConfigService implements app.ConfigUsecase for testing.
type MockConfigService struct {
	UpdateFunc func(ctx context.Context, req app.ConfigUpdateRequest) (app.ConfigUpdateResponse, error)
}

func (m *MockConfigService) GetConfig(ctx context.Context) app.ConfigResponse {
	return app.ConfigResponse{Port: 8787, Network: "testnet", FinalityMode: "poll"}
}

func (m *MockConfigService) UpdateConfig(ctx context.Context, req app.ConfigUpdateRequest) (app.ConfigUpdateResponse, error) {
	return m.UpdateFunc(ctx, req)
}

func TestPrefsEndpoints(t *testing.T) {
	mock := &MockPrefsService{}
	server := NewServer(":8080", app.HealthService{}, WithPrefsUsecase(mock))

	req := httptest.NewRequest(http.MethodPut, "/api/v1/prefs", strings.NewReader(`{"role":"staff","selected_cap_id":"0xca"}`))
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/prefs", nil))
	var resp app.PrefsResult
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Role != store.RoleStaff || resp.SelectedCapID != "0xca" || len(resp.RecentEvents) != 1 {
		t.Errorf("prefs = %+v", resp)
	}
}

func TestPrefsEndpoint_InvalidRole(t *testing.T) {
	server := NewServer(":8080", app.HealthService{}, WithPrefsUsecase(&MockPrefsService{}))

	req := httptest.NewRequest(http.MethodPut, "/api/v1/prefs", strings.NewReader(`{"role":"admin"}`))
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestConfigEndpoints(t *testing.T) {
	var got app.ConfigUpdateRequest
	mock := &MockConfigService{UpdateFunc: func(ctx context.Context, req app.ConfigUpdateRequest) (app.ConfigUpdateResponse, error) {
		got = req
		if req.FinalityMode != nil && *req.FinalityMode == "never" {
			return app.ConfigUpdateResponse{}, fmt.Errorf("%w: finality_mode must be poll or wait", app.ErrInvalidConfig)
		}
		if req.Port != nil && *req.Port == 1 {
			return app.ConfigUpdateResponse{}, errors.New("disk full")
		}
		return app.ConfigUpdateResponse{Success: true, RestartRequired: true}, nil
	}}
	server := NewServer(":8080", app.HealthService{}, WithConfigUsecase(mock))

	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"network":"testnet"`) {
		t.Errorf("GET config: %d %s", rec.Code, rec.Body.String())
	}

	tests := []struct {
		body  string
		want  int
		check func(t *testing.T, req app.ConfigUpdateRequest)
	}{
		{`{"finality_mode":"wait","sync_interval_sec":10}`, http.StatusOK, func(t *testing.T, req app.ConfigUpdateRequest) {
			if req.SyncIntervalSec == nil || *req.SyncIntervalSec != 10 || req.FinalityMode == nil || *req.FinalityMode != "wait" {
				t.Errorf("request not decoded: %+v", req)
			}
		}},
		{`{"finality_mode":"never"}`, http.StatusBadRequest, nil},
		{`{"unknown":1}`, http.StatusBadRequest, nil},
		{`{"port":1}`, http.StatusInternalServerError, nil},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("PUT %s", tt.body), func(t *testing.T) {
			got = app.ConfigUpdateRequest{}
			req := httptest.NewRequest(http.MethodPut, "/api/v1/config", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			server.mux.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}
