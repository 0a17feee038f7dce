//go:build integration

// Package integration provides end-to-end tests for the SuiTicket Companion API.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/api"
	"github.com/graaaaa/suiticket-companion/internal/app"
	"github.com/graaaaa/suiticket-companion/internal/derive"
	"github.com/graaaaa/suiticket-companion/internal/finality"
	"github.com/graaaaa/suiticket-companion/internal/ingest"
	"github.com/graaaaa/suiticket-companion/internal/ledger"
	"github.com/graaaaa/suiticket-companion/internal/ledger/ledgertest"
	"github.com/graaaaa/suiticket-companion/internal/model"
	"github.com/graaaaa/suiticket-companion/internal/reconcile"
	"github.com/graaaaa/suiticket-companion/internal/store"
)

const (
	pkg      = "0x00000000000000000000000000000000000000000000000000000000000000f1"
	owner    = "0x00000000000000000000000000000000000000000000000000000000000000aa"
	eventID  = "0x00000000000000000000000000000000000000000000000000000000000000e1"
	ticketID = "0x00000000000000000000000000000000000000000000000000000000000000a1"
	capID    = "0x00000000000000000000000000000000000000000000000000000000000000c1"
)

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

// TestApp holds all dependencies for integration tests.
type TestApp struct {
	Server *httptest.Server
	Store  *store.Store
	Hub    *api.Hub
	Ledger *ledgertest.Fake
	State  *derive.State

	cfg testAppConfig
}

// NewTestApp wires the store, sync runner, engine and API server against
// an in-memory ledger holding one event, one ticket and one gate cap.
// Resources are released through t.Cleanup.
func NewTestApp(t *testing.T, opts ...TestAppOption) *TestApp {
	t.Helper()

	cfg := testAppConfig{
		username:  "admin",
		password:  "password",
		sseSecret: []byte("test-secret-key-32-bytes-long!!"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	st, err := store.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	gw := ledgertest.New()
	gw.Put(
		ledgertest.EventObject(pkg, eventID, "Gig", 100_000_000, 300, owner, "7"),
		ledgertest.TicketObject(pkg, ticketID, owner, eventID, false),
		ledgertest.CapObject(pkg, capID, owner, eventID),
	)

	state := derive.New()
	snapshots := app.SnapshotService{State: state}

	hub := api.NewHub()
	go hub.Run()
	publish := func() { hub.PublishSnapshot(snapshots.Current(context.Background())) }

	syncer := ingest.NewSynchronizer(gw, pkg, ingest.WithSleeper(noSleep), ingest.WithMalformedSink(st))
	runner := ingest.NewRunner(syncer, owner, time.Minute,
		ingest.WithStore(st),
		ingest.WithOnSnapshot(func(snap *model.Snapshot, fp string) {
			if c := state.Replace(snap, fp); c != nil {
				publish()
			}
		}),
	)
	snapshots.Syncer = runner

	engine := reconcile.New(gw, finality.New(gw, finality.WithSleeper(noSleep)), state, pkg,
		reconcile.WithOwner(owner),
		reconcile.WithResyncer(runner),
		reconcile.WithJournal(st),
		reconcile.WithOnChange(func(*derive.Change) { publish() }),
	)

	serverOpts := []api.ServerOption{
		api.WithSnapshotUsecase(snapshots),
		api.WithActionsUsecase(&app.ActionsService{Engine: engine, Store: st}),
		api.WithPrefsUsecase(&app.PrefsService{Store: st}),
		api.WithStatsUsecase(app.NewStatsService(st)),
		api.WithHub(hub),
		api.WithSSESecret(cfg.sseSecret),
	}
	if cfg.authEnabled {
		serverOpts = append(serverOpts,
			api.WithBasicAuth(cfg.username, cfg.password),
			api.WithAuthFailureLimiter(api.NewAuthFailureLimiter(api.DefaultAuthFailureLimiterConfig())),
		)
	}

	// Addr is ignored for httptest
	server := api.NewServer("127.0.0.1:0", app.HealthService{
		Version:   "test",
		Network:   "localnet",
		OwnerFunc: engine.Owner,
		PackageID: pkg,
	}, serverOpts...)
	ts := httptest.NewServer(server.Handler())

	t.Cleanup(func() {
		ts.Close()
		hub.Stop()
		st.Close()
	})

	return &TestApp{
		Server: ts,
		Store:  st,
		Hub:    hub,
		Ledger: gw,
		State:  state,
		cfg:    cfg,
	}
}

// URL returns the base URL of the test server.
func (a *TestApp) URL() string {
	return a.Server.URL
}

// Do sends a request with credentials when auth is enabled. Bodies are
// JSON encoded and POST/PUT requests carry a same-origin Origin header.
func (a *TestApp) Do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.URL()+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost || method == http.MethodPut {
		req.Header.Set("Origin", "http://localhost")
	}
	if a.cfg.authEnabled {
		req.SetBasicAuth(a.cfg.username, a.cfg.password)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// SubmitSucceeds scripts the ledger to accept any transaction with digest
// and apply mutate as its effect.
func (a *TestApp) SubmitSucceeds(digest string, mutate func(f *ledgertest.Fake)) {
	a.Ledger.SubmitFunc = func(ctx context.Context, tx ledger.SignedTransaction) (ledger.SubmitResult, error) {
		if mutate != nil {
			mutate(a.Ledger)
		}
		a.Ledger.SetTransaction(ledger.TxResponse{Digest: digest, Status: ledger.StatusSuccess})
		return ledger.SubmitResult{Digest: digest}, nil
	}
}

// decode reads a JSON response body into v, failing on an unexpected status.
func decode(t *testing.T, resp *http.Response, wantStatus int, v any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("status = %d, want %d: %s", resp.StatusCode, wantStatus, body)
	}
	if v == nil {
		return
	}
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("parse JSON: %v (%s)", err, body)
	}
}

// testAppConfig holds configuration for test app.
type testAppConfig struct {
	authEnabled bool
	username    string
	password    string
	sseSecret   []byte
}

// TestAppOption configures a test app.
type TestAppOption func(*testAppConfig)

// WithAuth enables authentication for the test app.
func WithAuth(username, password string) TestAppOption {
	return func(cfg *testAppConfig) {
		cfg.authEnabled = true
		cfg.username = username
		cfg.password = password
	}
}
