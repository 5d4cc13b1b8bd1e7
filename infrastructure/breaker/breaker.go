package breaker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is the circuit state for one service key.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config tunes one registry. Zero values fall back to defaults.
type Config struct {
	FailureThreshold int           // consecutive window failures before opening (default 5)
	RecoveryTimeout  time.Duration // how long an open circuit rejects before probing (default 60s)
	MonitoringPeriod time.Duration // sliding metric window; resets counters, never state (default 300s)
	SuccessThreshold int           // half-open successes required to close (default 2)
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = 60 * time.Second
	}
	if c.MonitoringPeriod <= 0 {
		c.MonitoringPeriod = 300 * time.Second
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	return c
}

// Metrics is a point-in-time snapshot of one circuit.
type Metrics struct {
	State           State
	FailureCount    int
	SuccessCount    int
	RejectedCount   int
	LastFailureTime time.Time
	WindowStart     time.Time
}

// OpenError is returned when a call is rejected because the circuit is
// open. It is not a platform failure and must not burn a retry attempt.
type OpenError struct {
	Key     string
	RetryIn time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit open for %s, retry in %s", e.Key, e.RetryIn.Round(time.Millisecond))
}

type circuit struct {
	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	rejectedCount   int
	lastFailureTime time.Time
	windowStart     time.Time
}

// Registry holds one circuit per service key, lazily created. Safe for
// concurrent use; the per-key mutex is never held across the guarded call.
type Registry struct {
	cfg      Config
	now      func() time.Time
	mu       sync.Mutex
	circuits map[string]*circuit
}

// NewRegistry creates a breaker registry with the given config.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		circuits: make(map[string]*circuit),
	}
}

// WithClock overrides the time source. Tests only.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

func (r *Registry) circuitFor(key string) *circuit {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.circuits[key]
	if !ok {
		c = &circuit{state: StateClosed, windowStart: r.now()}
		r.circuits[key] = c
	}
	return c
}

// Execute runs fn guarded by the circuit for key. When the circuit is open
// it returns *OpenError immediately without invoking fn.
func (r *Registry) Execute(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	c := r.circuitFor(key)
	if retryIn, rejected := r.preflight(c); rejected {
		return &OpenError{Key: key, RetryIn: retryIn}
	}
	err := fn(ctx)
	r.record(c, err == nil)
	return err
}

// preflight applies window rollover and open->half-open promotion, then
// decides whether the call may proceed.
func (r *Registry) preflight(c *circuit) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := r.now()

	// Metric window rollover resets counters but never the state.
	if now.Sub(c.windowStart) >= r.cfg.MonitoringPeriod {
		c.windowStart = now
		c.failureCount = 0
		c.successCount = 0
		c.rejectedCount = 0
	}

	switch c.state {
	case StateOpen:
		waitedEnough := now.Sub(c.lastFailureTime) >= r.cfg.RecoveryTimeout
		if !waitedEnough {
			c.rejectedCount++
			return r.cfg.RecoveryTimeout - now.Sub(c.lastFailureTime), true
		}
		c.state = StateHalfOpen
		c.successCount = 0
	case StateHalfOpen, StateClosed:
	}
	return 0, false
}

func (r *Registry) record(c *circuit, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if success {
		c.successCount++
		if c.state == StateHalfOpen && c.successCount >= r.cfg.SuccessThreshold {
			c.state = StateClosed
			c.failureCount = 0
			c.successCount = 0
		}
		return
	}
	c.failureCount++
	c.lastFailureTime = r.now()
	switch c.state {
	case StateHalfOpen:
		c.state = StateOpen
	case StateClosed:
		if c.failureCount >= r.cfg.FailureThreshold {
			c.state = StateOpen
		}
	}
}

// State reports the current state for key, applying the open->half-open
// promotion when the recovery timeout has elapsed.
func (r *Registry) State(key string) State {
	c := r.circuitFor(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateOpen && r.now().Sub(c.lastFailureTime) >= r.cfg.RecoveryTimeout {
		c.state = StateHalfOpen
		c.successCount = 0
	}
	return c.state
}

// Metrics snapshots counters for key.
func (r *Registry) Metrics(key string) Metrics {
	c := r.circuitFor(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	return Metrics{
		State:           c.state,
		FailureCount:    c.failureCount,
		SuccessCount:    c.successCount,
		RejectedCount:   c.rejectedCount,
		LastFailureTime: c.lastFailureTime,
		WindowStart:     c.windowStart,
	}
}

// Reset closes the circuit for key and clears its counters.
func (r *Registry) Reset(key string) {
	c := r.circuitFor(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateClosed
	c.failureCount = 0
	c.successCount = 0
	c.rejectedCount = 0
	c.windowStart = r.now()
}

// ResetAll resets every known circuit.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	keys := make([]string, 0, len(r.circuits))
	for k := range r.circuits {
		keys = append(keys, k)
	}
	r.mu.Unlock()
	for _, k := range keys {
		r.Reset(k)
	}
}

// Keys lists every key that has a circuit.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.circuits))
	for k := range r.circuits {
		keys = append(keys, k)
	}
	return keys
}
