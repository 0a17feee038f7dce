package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a per-IP token bucket. State-changing requests can draw
// from a second, stricter bucket since each one may reach the fullnode.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	cfg      RateLimiterConfig
	now      func() time.Time
	stopOnce sync.Once
	done     chan struct{}
}

type visitor struct {
	reads    *rate.Limiter
	writes   *rate.Limiter // nil when writes share the read bucket
	lastSeen time.Time
}

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// Rate and Burst apply to every request.
	Rate  float64
	Burst int
	// WriteRate and WriteBurst additionally apply to POST, PUT and DELETE.
	// Zero disables the write bucket.
	WriteRate  float64
	WriteBurst int
	// CleanupInterval is how often idle visitors are dropped.
	CleanupInterval time.Duration
}

// DefaultRateLimiterConfig returns the LAN mode limits.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Rate:            10,
		Burst:           20,
		WriteRate:       2,
		WriteBurst:      5,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewRateLimiter creates a limiter and starts its cleanup loop.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		cfg:      cfg,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) lookup(ip string) *visitor {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{reads: rate.NewLimiter(rate.Limit(rl.cfg.Rate), rl.cfg.Burst)}
		if rl.cfg.WriteRate > 0 {
			v.writes = rate.NewLimiter(rate.Limit(rl.cfg.WriteRate), rl.cfg.WriteBurst)
		}
		rl.visitors[ip] = v
	}
	v.lastSeen = rl.now()
	return v
}

// Allow reports whether a read from ip is allowed.
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.lookup(ip).reads.Allow()
}

// AllowWrite reports whether a state-changing request from ip is allowed.
// It consumes from both buckets.
func (rl *RateLimiter) AllowWrite(ip string) bool {
	v := rl.lookup(ip)
	if v.writes != nil && !v.writes.Allow() {
		return false
	}
	return v.reads.Allow()
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.pruneIdle()
		case <-rl.done:
			return
		}
	}
}

// pruneIdle drops visitors idle for two cleanup intervals.
func (rl *RateLimiter) pruneIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := rl.now().Add(-2 * rl.cfg.CleanupInterval)
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(threshold) {
			delete(rl.visitors, ip)
		}
	}
}

// Stop stops the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)

		var allowed bool
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			allowed = rl.AllowWrite(ip)
		default:
			allowed = rl.Allow(ip)
		}
		if !allowed {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractIP returns the client IP. RemoteAddr is trusted; no reverse
// proxy sits in front of the companion.
func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// AuthFailureLimiter locks an IP out after repeated Basic Auth failures.
type AuthFailureLimiter struct {
	mu       sync.Mutex
	failures map[string]*authFailure
	cfg      AuthFailureLimiterConfig
	now      func() time.Time
}

type authFailure struct {
	count    int
	firstAt  time.Time
	lockedAt time.Time
}

// AuthFailureLimiterConfig configures auth failure limiting.
type AuthFailureLimiterConfig struct {
	MaxFailures   int           // failures before lockout
	Window        time.Duration // window for counting failures
	LockoutPeriod time.Duration
}

// DefaultAuthFailureLimiterConfig returns the LAN mode lockout policy.
func DefaultAuthFailureLimiterConfig() AuthFailureLimiterConfig {
	return AuthFailureLimiterConfig{
		MaxFailures:   5,
		Window:        5 * time.Minute,
		LockoutPeriod: 15 * time.Minute,
	}
}

// NewAuthFailureLimiter creates a new auth failure limiter.
func NewAuthFailureLimiter(cfg AuthFailureLimiterConfig) *AuthFailureLimiter {
	return &AuthFailureLimiter{
		failures: make(map[string]*authFailure),
		cfg:      cfg,
		now:      time.Now,
	}
}

// IsLocked reports whether ip is locked out.
func (afl *AuthFailureLimiter) IsLocked(ip string) bool {
	return afl.LockoutSecondsRemaining(ip) > 0
}

// RecordFailure records a failure for ip. It returns the attempts left,
// or -1 once the IP is locked.
func (afl *AuthFailureLimiter) RecordFailure(ip string) int {
	afl.mu.Lock()
	defer afl.mu.Unlock()

	now := afl.now()
	f, ok := afl.failures[ip]
	if !ok || now.Sub(f.firstAt) > afl.cfg.Window {
		afl.failures[ip] = &authFailure{count: 1, firstAt: now}
		if afl.cfg.MaxFailures <= 1 {
			afl.failures[ip].lockedAt = now
			return -1
		}
		return afl.cfg.MaxFailures - 1
	}

	f.count++
	if f.count >= afl.cfg.MaxFailures {
		f.lockedAt = now
		return -1
	}
	return afl.cfg.MaxFailures - f.count
}

// RecordSuccess clears the failure record for ip.
func (afl *AuthFailureLimiter) RecordSuccess(ip string) {
	afl.mu.Lock()
	defer afl.mu.Unlock()
	delete(afl.failures, ip)
}

// LockoutSecondsRemaining returns the whole seconds until ip's lockout
// ends, rounded up, or 0 when it is not locked.
func (afl *AuthFailureLimiter) LockoutSecondsRemaining(ip string) int {
	afl.mu.Lock()
	defer afl.mu.Unlock()

	f, ok := afl.failures[ip]
	if !ok || f.lockedAt.IsZero() {
		return 0
	}
	remaining := afl.cfg.LockoutPeriod - afl.now().Sub(f.lockedAt)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}
