package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/ledger"
	"github.com/graaaaa/suiticket-companion/internal/model"
)

const (
	testPkg   = "0xabc123"
	testOwner = "0x00000000000000000000000000000000000000000000000000000000000000aa"
)

// MockGateway implements ledger.Gateway with swappable functions.
type MockGateway struct {
	GetOwnedObjectsFunc func(ctx context.Context, owner, cursor string, limit int) (ledger.OwnedPage, error)

	mu         sync.Mutex
	ownedCalls int
}

func (m *MockGateway) GetObject(ctx context.Context, id string) (ledger.ObjectView, error) {
	return ledger.ObjectView{ID: id, Missing: true}, nil
}

func (m *MockGateway) GetOwnedObjects(ctx context.Context, owner, cursor string, limit int) (ledger.OwnedPage, error) {
	m.mu.Lock()
	m.ownedCalls++
	m.mu.Unlock()
	return m.GetOwnedObjectsFunc(ctx, owner, cursor, limit)
}

func (m *MockGateway) SubmitTransaction(ctx context.Context, tx ledger.SignedTransaction) (ledger.SubmitResult, error) {
	return ledger.SubmitResult{}, errors.New("not implemented")
}

func (m *MockGateway) GetTransaction(ctx context.Context, digest string) (ledger.TxResponse, error) {
	return ledger.TxResponse{}, errors.New("not implemented")
}

func (m *MockGateway) OwnedCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ownedCalls
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// sleepRecorder records requested delays without waiting.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func ticketObj(id, eventID string, used bool) ledger.ObjectView {
	return ledger.ObjectView{
		ID:     id,
		Type:   testPkg + "::ticket::Ticket",
		Owner:  ledger.Owner{Kind: ledger.OwnerAddress, Address: testOwner},
		Fields: map[string]any{"event_id": eventID, "used": used},
	}
}

func capObj(id, eventID string) ledger.ObjectView {
	return ledger.ObjectView{
		ID:     id,
		Type:   testPkg + "::ticket::GateCap",
		Owner:  ledger.Owner{Kind: ledger.OwnerAddress, Address: testOwner},
		Fields: map[string]any{"event_id": eventID},
	}
}

// pagedGateway serves objs in pages of the requested size.
func pagedGateway(objs []ledger.ObjectView) *MockGateway {
	return &MockGateway{
		GetOwnedObjectsFunc: func(ctx context.Context, owner, cursor string, limit int) (ledger.OwnedPage, error) {
			start := 0
			if cursor != "" {
				fmt.Sscanf(cursor, "c%d", &start)
			}
			end := start + limit
			if end > len(objs) {
				end = len(objs)
			}
			page := ledger.OwnedPage{Objects: objs[start:end]}
			if end < len(objs) {
				page.HasNextPage = true
				page.NextCursor = fmt.Sprintf("c%d", end)
			}
			return page, nil
		},
	}
}

func TestSync_PaginatesToExhaustion(t *testing.T) {
	var objs []ledger.ObjectView
	for i := 0; i < 120; i++ {
		objs = append(objs, ticketObj(fmt.Sprintf("0x%04x", i), "0xe1", false))
	}
	objs = append(objs, capObj("0xc1", "0xe1"))
	objs = append(objs, ledger.ObjectView{ID: "0xcoin", Type: "0x2::coin::Coin<0x2::sui::SUI>"})

	gw := pagedGateway(objs)
	at := time.Unix(1700000000, 0)
	s := NewSynchronizer(gw, testPkg, WithClock(fixedClock{at}))

	snap, err := s.Sync(context.Background(), testOwner)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if gw.OwnedCalls() != 3 {
		t.Errorf("page calls = %d, want 3 (50+50+22)", gw.OwnedCalls())
	}
	if len(snap.Tickets) != 120 || len(snap.Capabilities) != 1 {
		t.Errorf("counts = %+v", snap.Counts())
	}
	if snap.CapabilityEvents["0xc1"] != "0xe1" {
		t.Errorf("capability index = %v", snap.CapabilityEvents)
	}
	if !snap.SyncedAt.Equal(at) || snap.Owner != testOwner || snap.PackageID != testPkg {
		t.Errorf("snapshot header = %s %s %v", snap.Owner, snap.PackageID, snap.SyncedAt)
	}
}

func TestSync_HundredAndSevenInThreePages(t *testing.T) {
	var objs []ledger.ObjectView
	for i := 0; i < 107; i++ {
		objs = append(objs, ticketObj(fmt.Sprintf("0x%04x", i), "0xe1", i%2 == 0))
	}
	gw := pagedGateway(objs)

	snap, err := NewSynchronizer(gw, testPkg).Sync(context.Background(), testOwner)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if gw.OwnedCalls() != 3 {
		t.Errorf("page calls = %d, want 3 (50+50+7)", gw.OwnedCalls())
	}
	if len(snap.Tickets) != 107 {
		t.Errorf("tickets = %d, want 107", len(snap.Tickets))
	}
}

func TestSync_PageErrorAbortsWholePass(t *testing.T) {
	calls := 0
	gw := &MockGateway{
		GetOwnedObjectsFunc: func(ctx context.Context, owner, cursor string, limit int) (ledger.OwnedPage, error) {
			calls++
			if calls == 2 {
				return ledger.OwnedPage{}, &ledger.AdapterError{Op: "suix_getOwnedObjects", Transient: true, Err: errors.New("timeout")}
			}
			return ledger.OwnedPage{Objects: []ledger.ObjectView{ticketObj("0xa1", "0xe1", false)}, HasNextPage: true, NextCursor: "next"}, nil
		},
	}
	s := NewSynchronizer(gw, testPkg)

	snap, err := s.Sync(context.Background(), testOwner)
	if err == nil {
		t.Fatal("expected error")
	}
	if snap != nil {
		t.Error("no partial snapshot may be returned")
	}
	if !ledger.IsTransient(err) {
		t.Errorf("adapter error should be preserved in chain: %v", err)
	}
}

func TestSync_RepeatedCursorIsRunaway(t *testing.T) {
	gw := &MockGateway{
		GetOwnedObjectsFunc: func(ctx context.Context, owner, cursor string, limit int) (ledger.OwnedPage, error) {
			return ledger.OwnedPage{HasNextPage: true, NextCursor: "same"}, nil
		},
	}
	_, err := NewSynchronizer(gw, testPkg).Sync(context.Background(), testOwner)
	if !errors.Is(err, ErrPaginationRunaway) {
		t.Errorf("expected ErrPaginationRunaway, got %v", err)
	}
}

func TestSync_PageCeiling(t *testing.T) {
	n := 0
	gw := &MockGateway{
		GetOwnedObjectsFunc: func(ctx context.Context, owner, cursor string, limit int) (ledger.OwnedPage, error) {
			n++
			return ledger.OwnedPage{HasNextPage: true, NextCursor: fmt.Sprintf("c%d", n)}, nil
		},
	}
	_, err := NewSynchronizer(gw, testPkg, WithMaxPages(5)).Sync(context.Background(), testOwner)
	if !errors.Is(err, ErrPaginationRunaway) {
		t.Errorf("expected ErrPaginationRunaway, got %v", err)
	}
	if gw.OwnedCalls() != 5 {
		t.Errorf("calls = %d, want 5", gw.OwnedCalls())
	}
}

func TestSync_NoOwner(t *testing.T) {
	_, err := NewSynchronizer(pagedGateway(nil), testPkg).Sync(context.Background(), "  ")
	if !errors.Is(err, ErrNoOwner) {
		t.Errorf("expected ErrNoOwner, got %v", err)
	}
}

func TestSyncWithRetry_RecoversAfterFailures(t *testing.T) {
	attempts := 0
	gw := &MockGateway{
		GetOwnedObjectsFunc: func(ctx context.Context, owner, cursor string, limit int) (ledger.OwnedPage, error) {
			attempts++
			if attempts < 3 {
				return ledger.OwnedPage{}, errors.New("node unavailable")
			}
			return ledger.OwnedPage{Objects: []ledger.ObjectView{ticketObj("0xa1", "0xe1", true)}}, nil
		},
	}
	rec := &sleepRecorder{}
	s := NewSynchronizer(gw, testPkg, WithSleeper(rec.Sleep))

	snap, err := s.SyncWithRetry(context.Background(), testOwner)
	if err != nil {
		t.Fatalf("SyncWithRetry: %v", err)
	}
	if len(snap.Tickets) != 1 || !snap.Tickets[0].Consumed {
		t.Errorf("tickets = %+v", snap.Tickets)
	}
	want := []time.Duration{250 * time.Millisecond, 400 * time.Millisecond}
	if len(rec.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", rec.delays, want)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, rec.delays[i], want[i])
		}
	}
}

func TestSyncWithRetry_SurfacesLastError(t *testing.T) {
	attempts := 0
	gw := &MockGateway{
		GetOwnedObjectsFunc: func(ctx context.Context, owner, cursor string, limit int) (ledger.OwnedPage, error) {
			attempts++
			return ledger.OwnedPage{}, fmt.Errorf("failure %d", attempts)
		},
	}
	rec := &sleepRecorder{}
	s := NewSynchronizer(gw, testPkg, WithSleeper(rec.Sleep))

	_, err := s.SyncWithRetry(context.Background(), testOwner)
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if got := err.Error(); !strings.Contains(got, "failure 3") {
		t.Errorf("error should carry the last failure: %q", got)
	}
	if len(rec.delays) != 2 {
		t.Errorf("sleeps = %d, want 2 (none after last attempt)", len(rec.delays))
	}
}

func TestFingerprint_IgnoresSyncTime(t *testing.T) {
	a := model.NewSnapshot(testOwner, testPkg, nil, nil, []model.Ticket{{ID: "0xa1"}}, nil, time.Unix(1, 0))
	b := model.NewSnapshot(testOwner, testPkg, nil, nil, []model.Ticket{{ID: "0xa1"}}, nil, time.Unix(2, 0))
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("fingerprint should not depend on SyncedAt")
	}
	b.Tickets[0].Consumed = true
	if Fingerprint(a) == Fingerprint(b) {
		t.Error("fingerprint should change with content")
	}
	if len(Fingerprint(a)) != 64 {
		t.Errorf("fingerprint length = %d", len(Fingerprint(a)))
	}
}

// MockSnapshotStore records saved fingerprints.
type MockSnapshotStore struct {
	mu    sync.Mutex
	saved []string
}

func (m *MockSnapshotStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot, fp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, fp)
	return nil
}

func TestRunner_PersistsOnlyOnChange(t *testing.T) {
	gw := pagedGateway([]ledger.ObjectView{ticketObj("0xa1", "0xe1", false)})
	store := &MockSnapshotStore{}
	published := 0
	r := NewRunner(NewSynchronizer(gw, testPkg), testOwner, time.Hour,
		WithStore(store),
		WithOnSnapshot(func(*model.Snapshot, string) { published++ }),
	)

	for i := 0; i < 2; i++ {
		if _, err := r.RunOnce(context.Background()); err != nil {
			t.Fatalf("RunOnce: %v", err)
		}
	}
	if len(store.saved) != 1 {
		t.Errorf("saves = %d, want 1 for unchanged content", len(store.saved))
	}
	if published != 2 {
		t.Errorf("published = %d, want every pass", published)
	}
	st := r.Status()
	if st.Passes != 2 || st.Failures != 0 || st.Fingerprint == "" {
		t.Errorf("status = %+v", st)
	}
}

func TestRunner_SeedSkipsFirstSave(t *testing.T) {
	gw := pagedGateway([]ledger.ObjectView{ticketObj("0xa1", "0xe1", false)})
	s := NewSynchronizer(gw, testPkg)
	snap, err := s.Sync(context.Background(), testOwner)
	if err != nil {
		t.Fatal(err)
	}

	store := &MockSnapshotStore{}
	r := NewRunner(s, testOwner, time.Hour, WithStore(store))
	r.Seed(snap, Fingerprint(snap))

	if _, err := r.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(store.saved) != 0 {
		t.Errorf("unchanged seeded snapshot was saved again")
	}
}

func TestRunner_RecordsFailure(t *testing.T) {
	gw := &MockGateway{
		GetOwnedObjectsFunc: func(ctx context.Context, owner, cursor string, limit int) (ledger.OwnedPage, error) {
			return ledger.OwnedPage{}, errors.New("down")
		},
	}
	rec := &sleepRecorder{}
	r := NewRunner(NewSynchronizer(gw, testPkg, WithSleeper(rec.Sleep)), testOwner, time.Hour)

	if _, err := r.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	st := r.Status()
	if st.Failures != 1 || st.LastError == "" {
		t.Errorf("status = %+v", st)
	}
}

func TestRunner_TriggerAndStop(t *testing.T) {
	gw := pagedGateway(nil)
	passes := make(chan struct{}, 10)
	r := NewRunner(NewSynchronizer(gw, testPkg), testOwner, time.Hour,
		WithOnSnapshot(func(*model.Snapshot, string) { passes <- struct{}{} }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	waitPass := func() {
		select {
		case <-passes:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for sync pass")
		}
	}
	waitPass() // initial pass
	r.Trigger()
	waitPass()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

type malformedRecorder struct {
	ids []string
}

func (m *malformedRecorder) RecordMalformed(ctx context.Context, obj ledger.ObjectView) error {
	m.ids = append(m.ids, obj.ID)
	return nil
}

func TestSync_ReportsMalformedObjects(t *testing.T) {
	broken := ledger.ObjectView{
		ID:     "0xbad1",
		Type:   testPkg + "::ticket::Ticket",
		Owner:  ledger.Owner{Kind: ledger.OwnerAddress, Address: testOwner},
		Fields: map[string]any{"used": "yes"},
	}
	gw := pagedGateway([]ledger.ObjectView{ticketObj("0xa1", "0xe1", false), broken})
	rec := &malformedRecorder{}

	snap, err := NewSynchronizer(gw, testPkg, WithMalformedSink(rec)).Sync(context.Background(), testOwner)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(snap.Tickets) != 2 {
		t.Errorf("incomplete objects are still kept, got %d tickets", len(snap.Tickets))
	}
	if len(rec.ids) != 1 || rec.ids[0] != "0xbad1" {
		t.Errorf("malformed = %v", rec.ids)
	}
}
