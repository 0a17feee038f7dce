package app

import (
	"bytes"
	"context"
	"log/slog"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/derive"
	"github.com/graaaaa/suiticket-companion/internal/ingest"
	"github.com/graaaaa/suiticket-companion/internal/ledger"
	"github.com/graaaaa/suiticket-companion/internal/ledger/ledgertest"
	"github.com/graaaaa/suiticket-companion/internal/model"
	"github.com/graaaaa/suiticket-companion/internal/qr"
	"github.com/graaaaa/suiticket-companion/internal/reconcile"
	"github.com/graaaaa/suiticket-companion/internal/store"
)

const (
	owner  = "0x00000000000000000000000000000000000000000000000000000000000000aa"
	ticket = "0x00000000000000000000000000000000000000000000000000000000000000b1"
)

func seededState() *derive.State {
	s := derive.New()
	s.Replace(model.NewSnapshot(owner, "0xf1", nil, nil,
		[]model.Ticket{{ID: ticket, Owner: owner, EventID: "0xe1"}},
		[]model.Permit{{ID: "0xc1", TicketID: ticket, EventID: "0xe1"}},
		time.Now(),
	), "fp")
	return s
}

// MockSyncer implements Syncer.
type MockSyncer struct {
	RunOnceFunc func(ctx context.Context) (*model.Snapshot, error)
	status      ingest.Status
}

func (m *MockSyncer) RunOnce(ctx context.Context) (*model.Snapshot, error) {
	return m.RunOnceFunc(ctx)
}

func (m *MockSyncer) Status() ingest.Status { return m.status }

func TestSnapshotService_Current(t *testing.T) {
	svc := SnapshotService{State: seededState(), Syncer: &MockSyncer{status: ingest.Status{Owner: owner, Passes: 3}}}

	res := svc.Current(context.Background())
	if res.Snapshot == nil || len(res.Snapshot.Tickets) != 1 {
		t.Fatalf("snapshot = %+v", res.Snapshot)
	}
	if res.Provenance != model.Confirmed || res.Generation != 1 {
		t.Errorf("provenance/generation = %s/%d", res.Provenance, res.Generation)
	}
	if res.Sync == nil || res.Sync.Passes != 3 {
		t.Errorf("sync status = %+v", res.Sync)
	}
}

func TestSnapshotService_Sync(t *testing.T) {
	called := false
	svc := SnapshotService{State: seededState(), Syncer: &MockSyncer{
		RunOnceFunc: func(ctx context.Context) (*model.Snapshot, error) {
			called = true
			return nil, nil
		},
	}}
	if _, err := svc.Sync(context.Background()); err != nil || !called {
		t.Fatalf("Sync = %v, called %v", err, called)
	}

	boom := errors.New("node down")
	svc.Syncer = &MockSyncer{RunOnceFunc: func(ctx context.Context) (*model.Snapshot, error) { return nil, boom }}
	if _, err := svc.Sync(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}

	svc.Syncer = nil
	if _, err := svc.Sync(context.Background()); !errors.Is(err, ErrNoOwner) {
		t.Errorf("err = %v, want ErrNoOwner", err)
	}
}

func TestSnapshotService_TicketPermits(t *testing.T) {
	svc := SnapshotService{State: seededState()}
	ctx := context.Background()

	ids, err := svc.TicketPermits(ctx, ticket)
	if err != nil || !reflect.DeepEqual(ids, []string{"0xc1"}) {
		t.Errorf("permits = %v, %v", ids, err)
	}
	if _, err := svc.TicketPermits(ctx, "0xnope"); !errors.Is(err, ErrTicketNotFound) {
		t.Errorf("err = %v, want ErrTicketNotFound", err)
	}

	empty := SnapshotService{State: derive.New()}
	if _, err := empty.TicketPermits(ctx, ticket); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("err = %v, want ErrNoSnapshot", err)
	}
}

func TestSnapshotService_TicketQR(t *testing.T) {
	svc := SnapshotService{State: seededState()}

	res, err := svc.TicketQR(context.Background(), ticket)
	if err != nil {
		t.Fatalf("TicketQR: %v", err)
	}
	d := qr.Decode(res.Payload)
	if d.Kind != qr.KindJSONV1 || d.TicketID != ticket || d.EventID != "0xe1" {
		t.Errorf("decoded = %+v", d)
	}
}

// MockEngine implements ActionEngine.
type MockEngine struct {
	BuildFunc   func(ctx context.Context, req reconcile.ActionRequest) (*reconcile.BuiltIntent, error)
	ExecuteFunc func(ctx context.Context, a reconcile.SignedAction) (reconcile.Report, error)
	LookupFunc  func(ctx context.Context, id string) (reconcile.TicketLookup, error)
}

func (m *MockEngine) Build(ctx context.Context, req reconcile.ActionRequest) (*reconcile.BuiltIntent, error) {
	return m.BuildFunc(ctx, req)
}

func (m *MockEngine) Execute(ctx context.Context, a reconcile.SignedAction) (reconcile.Report, error) {
	return m.ExecuteFunc(ctx, a)
}

func (m *MockEngine) LookupTicket(ctx context.Context, id string) (reconcile.TicketLookup, error) {
	return m.LookupFunc(ctx, id)
}

// MockActionStore implements ActionStore.
type MockActionStore struct {
	QueryFunc func(ctx context.Context, f store.ActionFilter) (store.ActionPage, error)
}

func (m *MockActionStore) QueryActions(ctx context.Context, f store.ActionFilter) (store.ActionPage, error) {
	return m.QueryFunc(ctx, f)
}

func TestActionsService_ExecuteIgnoresCallerCancel(t *testing.T) {
	svc := &ActionsService{Engine: &MockEngine{
		ExecuteFunc: func(ctx context.Context, a reconcile.SignedAction) (reconcile.Report, error) {
			if ctx.Err() != nil {
				t.Error("engine received a cancelled context")
			}
			return reconcile.Report{Action: model.Action{Outcome: model.ActionSucceeded}}, nil
		},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := svc.Execute(ctx, reconcile.SignedAction{})
	if err != nil || rep.Outcome != model.ActionSucceeded {
		t.Errorf("Execute = %+v, %v", rep, err)
	}
}

func TestActionsService_ListNonNil(t *testing.T) {
	svc := &ActionsService{Store: &MockActionStore{
		QueryFunc: func(ctx context.Context, f store.ActionFilter) (store.ActionPage, error) {
			if f.Limit != 5 {
				t.Errorf("limit = %d, want 5", f.Limit)
			}
			return store.ActionPage{}, nil
		},
	}}

	page, err := svc.List(context.Background(), store.ActionFilter{Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if page.Items == nil {
		t.Error("items should be an empty slice")
	}
}

// MockEventReader implements EventReader.
type MockEventReader struct {
	ReadEventFunc func(ctx context.Context, id string) (model.Event, error)
}

func (m *MockEventReader) ReadEvent(ctx context.Context, id string) (model.Event, error) {
	return m.ReadEventFunc(ctx, id)
}

type recentRecorder struct {
	pushed []string
	err    error
}

func (r *recentRecorder) PushRecentEvent(ctx context.Context, id string) error {
	if r.err != nil {
		return r.err
	}
	r.pushed = append(r.pushed, id)
	return nil
}

func TestEventsService_EventRemembersRecent(t *testing.T) {
	rec := &recentRecorder{}
	svc := &EventsService{
		Reader: &MockEventReader{ReadEventFunc: func(ctx context.Context, id string) (model.Event, error) {
			if id == "0xmissing" {
				return model.Event{}, ledger.ErrNotFound
			}
			return model.Event{ID: id, Name: "Gig"}, nil
		}},
		Recent: rec,
	}
	ctx := context.Background()

	ev, err := svc.Event(ctx, "0xe1")
	if err != nil || ev.Name != "Gig" {
		t.Fatalf("Event = %+v, %v", ev, err)
	}
	if _, err := svc.Event(ctx, "0xmissing"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
	if !reflect.DeepEqual(rec.pushed, []string{"0xe1"}) {
		t.Errorf("pushed = %v", rec.pushed)
	}
}

func TestEventsService_RecentFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	svc := &EventsService{
		Reader: &MockEventReader{ReadEventFunc: func(ctx context.Context, id string) (model.Event, error) {
			return model.Event{ID: id, Name: "Gig"}, nil
		}},
		Recent: &recentRecorder{err: errors.New("database is locked")},
		Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}

	ev, err := svc.Event(context.Background(), "0xe1")
	if err != nil || ev.ID != "0xe1" {
		t.Fatalf("Event = %+v, %v", ev, err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("recent event not recorded")) || !bytes.Contains(buf.Bytes(), []byte("database is locked")) {
		t.Errorf("log = %q", buf.String())
	}
}

type namesFunc func(ctx context.Context, ids []string) (map[string]string, error)

func (f namesFunc) Names(ctx context.Context, ids []string) (map[string]string, error) {
	return f(ctx, ids)
}

func TestEventsService_Registry(t *testing.T) {
	const reg = "0x0000000000000000000000000000000000000000000000000000000000000aa1"
	f := ledgertest.New()
	f.Put(ledger.ObjectView{
		ID:     reg,
		Type:   "0xf1::ticket::EventRegistry",
		Fields: map[string]any{"events": []any{"0xe1", "0xe2"}},
	})

	svc := &EventsService{
		Gateway:    f,
		RegistryID: reg,
		Resolver: namesFunc(func(ctx context.Context, ids []string) (map[string]string, error) {
			return nil, errors.New("all fetches failed")
		}),
	}
	res, err := svc.Registry(context.Background())
	if err != nil {
		t.Fatalf("Registry: %v", err)
	}
	if !reflect.DeepEqual(res.EventIDs, []string{"0xe1", "0xe2"}) {
		t.Errorf("ids = %v", res.EventIDs)
	}
	if res.Names == nil || len(res.Names) != 0 {
		t.Errorf("names = %v, want empty", res.Names)
	}
}

func TestPrefsService_SaveReturnsRecent(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	ctx := context.Background()
	if err := st.PushRecentEvent(ctx, "0xe1"); err != nil {
		t.Fatal(err)
	}

	svc := &PrefsService{Store: st}
	res, err := svc.Save(ctx, store.Prefs{Role: store.RoleOrganizer})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if res.Role != store.RoleOrganizer || !reflect.DeepEqual(res.RecentEvents, []string{"0xe1"}) {
		t.Errorf("result = %+v", res)
	}
}

func TestConfigService_UpdateAndGet(t *testing.T) {
	dir := t.TempDir()
	svc := ConfigService{
		ConfigPath:  filepath.Join(dir, "config.json"),
		SecretsPath: filepath.Join(dir, "secrets.json"),
	}
	ctx := context.Background()

	pkg := "0xf1"
	mode := "wait"
	port := 9000
	webhook := "https://discord.com/api/webhooks/1/abc"
	resp, err := svc.UpdateConfig(ctx, ConfigUpdateRequest{
		PackageID:         &pkg,
		FinalityMode:      &mode,
		Port:              &port,
		DiscordWebhookURL: &webhook,
	})
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if !resp.Success || !resp.RestartRequired || resp.NewPort != 9000 {
		t.Errorf("resp = %+v", resp)
	}

	got := svc.GetConfig(ctx)
	if got.PackageID != pkg || got.FinalityMode != mode || got.Port != 9000 || !got.DiscordWebhookConfigured {
		t.Errorf("config = %+v", got)
	}
}

func TestConfigService_UpdateRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	svc := ConfigService{
		ConfigPath:  filepath.Join(dir, "config.json"),
		SecretsPath: filepath.Join(dir, "secrets.json"),
	}
	ctx := context.Background()

	badPkg := "f1"
	badMode := "eventually"
	badHook := "https://example.com/hook"
	badOrigins := []string{"https://wallet.example/app"}
	tests := []struct {
		name string
		req  ConfigUpdateRequest
	}{
		{"package without 0x", ConfigUpdateRequest{PackageID: &badPkg}},
		{"finality mode", ConfigUpdateRequest{FinalityMode: &badMode}},
		{"webhook host", ConfigUpdateRequest{DiscordWebhookURL: &badHook}},
		{"origin with path", ConfigUpdateRequest{AllowedOrigins: &badOrigins}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.UpdateConfig(ctx, tt.req); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfigService_AllowedOrigins(t *testing.T) {
	dir := t.TempDir()
	svc := ConfigService{
		ConfigPath:  filepath.Join(dir, "config.json"),
		SecretsPath: filepath.Join(dir, "secrets.json"),
	}
	ctx := context.Background()

	origins := []string{"https://wallet.example/", "https://wallet.example", "http://localhost:5173"}
	if _, err := svc.UpdateConfig(ctx, ConfigUpdateRequest{AllowedOrigins: &origins}); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	got := svc.GetConfig(ctx).AllowedOrigins
	if len(got) != 2 || got[0] != "https://wallet.example" || got[1] != "http://localhost:5173" {
		t.Errorf("allowed origins = %v", got)
	}
}

func TestConfigService_OwnerChangeAppliedLive(t *testing.T) {
	dir := t.TempDir()
	var applied []string
	svc := ConfigService{
		ConfigPath:   filepath.Join(dir, "config.json"),
		SecretsPath:  filepath.Join(dir, "secrets.json"),
		OwnerChanged: func(owner string) { applied = append(applied, owner) },
	}
	ctx := context.Background()

	owner := " 0x00000000000000000000000000000000000000000000000000000000000000bb "
	resp, err := svc.UpdateConfig(ctx, ConfigUpdateRequest{OwnerAddress: &owner})
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if resp.RestartRequired {
		t.Error("owner change alone should not require a restart")
	}
	want := "0x00000000000000000000000000000000000000000000000000000000000000bb"
	if len(applied) != 1 || applied[0] != want {
		t.Errorf("applied = %q", applied)
	}

	// Same owner again: nothing to apply.
	if _, err := svc.UpdateConfig(ctx, ConfigUpdateRequest{OwnerAddress: &owner}); err != nil {
		t.Fatal(err)
	}
	if len(applied) != 1 {
		t.Errorf("unchanged owner applied again: %q", applied)
	}

	interval := 30
	resp, err = svc.UpdateConfig(ctx, ConfigUpdateRequest{SyncIntervalSec: &interval})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.RestartRequired {
		t.Error("sync interval change should require a restart")
	}

	svc.OwnerChanged = nil
	other := "0x00000000000000000000000000000000000000000000000000000000000000cc"
	resp, err = svc.UpdateConfig(ctx, ConfigUpdateRequest{OwnerAddress: &other})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.RestartRequired {
		t.Error("owner change without a live hook should require a restart")
	}
}

func TestHealthService_Notifications(t *testing.T) {
	res, err := HealthService{Version: "v1"}.Handle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != "ok" || res.Notifications != "off" {
		t.Errorf("result = %+v", res)
	}

	res, _ = HealthService{NotifyFunc: func() string { return "backing_off" }}.Handle(context.Background())
	if res.Notifications != "backing_off" {
		t.Errorf("notifications = %q", res.Notifications)
	}
}
