package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const visitorIP = "192.168.1.100"

func newTestLimiter(t *testing.T, cfg RateLimiterConfig) *RateLimiter {
	t.Helper()
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Hour
	}
	rl := NewRateLimiter(cfg)
	t.Cleanup(rl.Stop)
	return rl
}

func TestRateLimiter_BurstPerIP(t *testing.T) {
	rl := newTestLimiter(t, RateLimiterConfig{Rate: 10, Burst: 3})

	for i := range 3 {
		if !rl.Allow(visitorIP) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow(visitorIP) {
		t.Error("request past the burst should be denied")
	}
	if !rl.Allow("192.168.1.101") {
		t.Error("another IP has its own bucket")
	}
}

func TestRateLimiter_WriteBucket(t *testing.T) {
	rl := newTestLimiter(t, RateLimiterConfig{Rate: 10, Burst: 10, WriteRate: 1, WriteBurst: 2})

	if !rl.AllowWrite(visitorIP) || !rl.AllowWrite(visitorIP) {
		t.Fatal("writes within the write burst should be allowed")
	}
	if rl.AllowWrite(visitorIP) {
		t.Error("third write should be denied")
	}
	if !rl.Allow(visitorIP) {
		t.Error("reads are still allowed after the write bucket drains")
	}
}

func TestRateLimiter_WritesShareReadBucketWhenUnset(t *testing.T) {
	rl := newTestLimiter(t, RateLimiterConfig{Rate: 10, Burst: 2})

	rl.AllowWrite(visitorIP)
	rl.AllowWrite(visitorIP)
	if rl.Allow(visitorIP) {
		t.Error("writes should drain the shared bucket")
	}
}

func TestRateLimiter_PruneIdle(t *testing.T) {
	rl := newTestLimiter(t, RateLimiterConfig{Rate: 10, Burst: 1, CleanupInterval: time.Minute})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow(visitorIP)
	now = now.Add(3 * time.Minute)
	rl.pruneIdle()

	if len(rl.visitors) != 0 {
		t.Errorf("visitors after prune = %d", len(rl.visitors))
	}
	if !rl.Allow(visitorIP) {
		t.Error("a pruned visitor starts with a full bucket")
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := newTestLimiter(t, RateLimiterConfig{Rate: 1, Burst: 2, WriteRate: 1, WriteBurst: 1})
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/v1/actions", nil)
		req.RemoteAddr = visitorIP + ":12345"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(http.MethodPost); rec.Code != http.StatusOK {
		t.Fatalf("first POST = %d", rec.Code)
	}
	rec := do(http.MethodPost)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Error("expected Retry-After header")
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("content-type = %q", rec.Header().Get("Content-Type"))
	}
	if rec := do(http.MethodGet); rec.Code != http.StatusOK {
		t.Errorf("GET after write limit = %d", rec.Code)
	}
}

func TestAuthFailureLimiter_Lockout(t *testing.T) {
	afl := NewAuthFailureLimiter(AuthFailureLimiterConfig{MaxFailures: 3, Window: time.Minute, LockoutPeriod: time.Minute})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	afl.now = func() time.Time { return now }

	if afl.IsLocked(visitorIP) {
		t.Fatal("should not be locked initially")
	}
	for _, want := range []int{2, 1, -1} {
		if got := afl.RecordFailure(visitorIP); got != want {
			t.Fatalf("RecordFailure = %d, want %d", got, want)
		}
	}
	if !afl.IsLocked(visitorIP) {
		t.Fatal("should be locked after max failures")
	}
	if got := afl.LockoutSecondsRemaining(visitorIP); got != 61 {
		t.Errorf("lockout seconds = %d, want 61", got)
	}

	now = now.Add(time.Minute)
	if afl.IsLocked(visitorIP) {
		t.Error("lockout should expire")
	}
}

func TestAuthFailureLimiter_WindowResets(t *testing.T) {
	afl := NewAuthFailureLimiter(AuthFailureLimiterConfig{MaxFailures: 3, Window: time.Minute, LockoutPeriod: time.Minute})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	afl.now = func() time.Time { return now }

	afl.RecordFailure(visitorIP)
	afl.RecordFailure(visitorIP)
	now = now.Add(2 * time.Minute)
	if got := afl.RecordFailure(visitorIP); got != 2 {
		t.Errorf("remaining after window = %d, want 2", got)
	}
}

func TestAuthFailureLimiter_SuccessClears(t *testing.T) {
	afl := NewAuthFailureLimiter(AuthFailureLimiterConfig{MaxFailures: 3, Window: time.Minute, LockoutPeriod: time.Minute})

	afl.RecordFailure(visitorIP)
	afl.RecordFailure(visitorIP)
	afl.RecordSuccess(visitorIP)

	if got := afl.RecordFailure(visitorIP); got != 2 {
		t.Errorf("remaining after success = %d, want 2", got)
	}
}
