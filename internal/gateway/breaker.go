package gateway

import (
	"sync"
	"time"
)

const (
	// breakerThreshold is the consecutive primary failure count that
	// opens the circuit. The first failure is tolerated silently.
	breakerThreshold = 2
	// breakerCooldown is how long the primary stays skipped once open.
	breakerCooldown = 60 * time.Second
)

// BreakerState is a read-only snapshot for diagnostics.
type BreakerState struct {
	Open      bool       `json:"open"`
	Failures  int        `json:"failures"`
	OpenUntil *time.Time `json:"open_until,omitempty"`
}

// CircuitBreaker tracks consecutive failures of the primary gateway
// endpoint. Safe for concurrent use.
type CircuitBreaker struct {
	mu        sync.Mutex
	now       func() time.Time
	failures  int
	openUntil time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker() *CircuitBreaker {
	return &CircuitBreaker{now: time.Now}
}

// Open reports whether the primary endpoint should be skipped.
func (b *CircuitBreaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().Before(b.openUntil)
}

// RecordFailure counts a primary failure and opens the circuit once
// the threshold is reached.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= breakerThreshold {
		b.openUntil = b.now().Add(breakerCooldown)
	}
}

// RecordSuccess closes the circuit and resets the failure count.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.openUntil = time.Time{}
}

// Snapshot returns the current breaker state.
func (b *CircuitBreaker) Snapshot() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	open := b.now().Before(b.openUntil)
	s := BreakerState{Open: open, Failures: b.failures}
	if open {
		until := b.openUntil
		s.OpenUntil = &until
	}
	return s
}
