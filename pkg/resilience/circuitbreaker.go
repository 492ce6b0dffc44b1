// Package resilience guards calls to optional infrastructure (the Redis
// query cache, Kafka publishers, the Postgres run log) with a circuit
// breaker and bounded retries, so a slow or missing dependency never holds
// up search or indexing.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the guarded function while
// the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// CircuitBreakerConfig sets when the breaker trips and how it recovers.
// Zero fields take the defaults: 5 consecutive failures, a 30s cool-down
// and a single half-open probe.
type CircuitBreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
	ProbeLimit       int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
	if c.ProbeLimit <= 0 {
		c.ProbeLimit = 1
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// CircuitBreaker opens after FailureThreshold consecutive failures. Once
// Cooldown has passed it lets ProbeLimit calls through; one success closes
// it again and one failure re-opens it.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probes   int
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg.withDefaults(),
		logger: slog.Default().With("component", "circuit-breaker", "breaker", name),
	}
}

// Execute calls fn unless the breaker is open and records the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset closes the breaker and clears its failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		wait := cb.cfg.Cooldown - cb.cfg.Now().Sub(cb.openedAt)
		if wait > 0 {
			return fmt.Errorf("%w: %s, retry in %v", ErrCircuitOpen, cb.name, wait.Round(time.Millisecond))
		}
		cb.transition(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.probes >= cb.cfg.ProbeLimit {
			return fmt.Errorf("%w: %s, probe in flight", ErrCircuitOpen, cb.name)
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		if cb.state == StateHalfOpen {
			cb.transition(StateClosed)
		}
		cb.failures = 0
		return
	}

	cb.failures++
	switch {
	case cb.state == StateHalfOpen:
		cb.transition(StateOpen)
	case cb.state == StateClosed && cb.failures >= cb.cfg.FailureThreshold:
		cb.transition(StateOpen)
	}
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	cb.probes = 0
	switch to {
	case StateOpen:
		cb.openedAt = cb.cfg.Now()
		cb.logger.Warn("circuit opened", "from", from.String(), "consecutive_failures", cb.failures)
	case StateClosed:
		cb.failures = 0
		if from != StateClosed {
			cb.logger.Info("circuit closed", "from", from.String())
		}
	case StateHalfOpen:
		cb.logger.Info("circuit half-open, probing", "cooldown", cb.cfg.Cooldown)
	}
}
