package backoff

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// ExponentialConfig configures exponential backoff.
type ExponentialConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64 // 0.0 to 1.0
}

// DefaultExponentialConfig suits webhook APIs.
var DefaultExponentialConfig = ExponentialConfig{
	InitialDelay: 1 * time.Second,
	MaxDelay:     5 * time.Minute,
	Multiplier:   2.0,
	JitterFactor: 0.2,
}

// Exponential calculates exponential backoff with jitter.
// It owns its RNG so concurrent callers and seeded tests stay independent.
type Exponential struct {
	cfg ExponentialConfig
	rng *rand.Rand
	mu  sync.Mutex
}

// NewExponential creates an Exponential with a random seed.
func NewExponential(cfg ExponentialConfig) *Exponential {
	return NewExponentialWithSeed(cfg, time.Now().UnixNano())
}

// NewExponentialWithSeed creates an Exponential with a fixed seed.
func NewExponentialWithSeed(cfg ExponentialConfig, seed int64) *Exponential {
	return &Exponential{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Delay returns the delay for the given attempt (0-indexed).
func (b *Exponential) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(b.cfg.InitialDelay) * math.Pow(b.cfg.Multiplier, float64(attempt))
	if delay > float64(b.cfg.MaxDelay) {
		delay = float64(b.cfg.MaxDelay)
	}

	// Jitter in [-JitterFactor, +JitterFactor] * delay.
	if b.cfg.JitterFactor > 0 {
		b.mu.Lock()
		jitter := delay * b.cfg.JitterFactor * (b.rng.Float64()*2 - 1)
		b.mu.Unlock()
		delay += jitter
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
