package reliability

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen reports a call rejected by an open breaker; IsRetryable
// treats it as non-retryable. Allow itself reports rejection by returning
// false, not this error.
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitState names the three states of a CircuitBreaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitConfig controls how many consecutive failures trip the breaker
// and how long it stays open before probing again.
type CircuitConfig struct {
	FailureThreshold int
	CooldownPeriod   time.Duration
}

// DefaultCompletionCircuitConfig returns the default breaker tuning for
// the Completion provider.
func DefaultCompletionCircuitConfig() CircuitConfig {
	return CircuitConfig{FailureThreshold: 5, CooldownPeriod: 30 * time.Second}
}

// DefaultEmbeddingCircuitConfig returns the default breaker tuning for
// the Embedder provider.
func DefaultEmbeddingCircuitConfig() CircuitConfig {
	return CircuitConfig{FailureThreshold: 5, CooldownPeriod: 30 * time.Second}
}

// CircuitBreaker trips after FailureThreshold consecutive failures,
// rejecting calls until CooldownPeriod elapses, then allows a single
// half-open probe before fully closing or re-opening.
type CircuitBreaker struct {
	config CircuitConfig

	mu          sync.Mutex
	state       CircuitState
	failures    int
	openedAt    time.Time
	halfOpenHit bool
}

// NewCircuitBreaker returns a closed CircuitBreaker tuned by config.
func NewCircuitBreaker(config CircuitConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.CooldownPeriod <= 0 {
		config.CooldownPeriod = 30 * time.Second
	}
	return &CircuitBreaker{config: config, state: CircuitClosed}
}

// Allow reports whether a call may proceed, transitioning an open
// breaker to half-open once the cooldown has elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(cb.openedAt) < cb.config.CooldownPeriod {
			return false
		}
		cb.state = CircuitHalfOpen
		cb.halfOpenHit = false
		return true
	case CircuitHalfOpen:
		if cb.halfOpenHit {
			return false
		}
		cb.halfOpenHit = true
		return true
	default:
		return true
	}
}

// RecordSuccess resets the breaker to closed.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.state = CircuitClosed
}

// RecordFailure counts a failure, tripping the breaker open once
// FailureThreshold consecutive failures accumulate (or immediately, if
// the probe call made from half-open fails).
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen {
		cb.state = CircuitOpen
		cb.openedAt = time.Now()
		return
	}

	cb.failures++
	if cb.failures >= cb.config.FailureThreshold {
		cb.state = CircuitOpen
		cb.openedAt = time.Now()
	}
}

// State returns the breaker's current state, for tests and diagnostics.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
