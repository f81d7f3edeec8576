// Package resilience implements the circuit breaker, retry, and health
// check primitives the engine wraps around every external-facing store
// and embedding provider call, per spec.md §5's concurrency/resource
// model.
package resilience

import (
	"sync"
	"time"

	"github.com/raildex/retrieval-engine/internal/rerr"
)

// State is a circuit breaker's current position in the
// closed → open → half_open state machine.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// TransitionFunc is notified of every state change, used to drive the
// observability counters and StatusReporter's degraded-subsystem view.
type TransitionFunc func(component string, from, to State)

// CircuitBreaker guards a single external-facing component (a store
// backend or embedding provider). It opens after FailureThreshold
// consecutive failures, refuses calls until OpenDuration has elapsed,
// then allows exactly one trial call in the half-open state before
// deciding whether to close or re-open.
type CircuitBreaker struct {
	component        string
	failureThreshold int
	openDuration     time.Duration
	onTransition     TransitionFunc

	mu           sync.Mutex
	state        State
	failureCount int
	openUntil    time.Time
}

// NewCircuitBreaker builds a breaker for component, named for logging and
// metrics labels.
func NewCircuitBreaker(component string, failureThreshold int, openDuration time.Duration, onTransition TransitionFunc) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &CircuitBreaker{
		component:        component,
		failureThreshold: failureThreshold,
		openDuration:     openDuration,
		onTransition:     onTransition,
		state:            Closed,
	}
}

// Allow reports whether a call should proceed, and if the breaker is open
// but the cooldown has elapsed, transitions it to half-open and allows
// the single trial call through.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if time.Now().After(b.openUntil) {
			b.transitionLocked(HalfOpen)
			return true
		}
		return false
	case HalfOpen:
		return false
	default:
		return true
	}
}

// RecordSuccess resets the failure count and, if the breaker was
// half-open, closes it.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount = 0
	if b.state == HalfOpen {
		b.transitionLocked(Closed)
	}
}

// RecordFailure increments the failure count and opens the breaker once
// the threshold is reached, or immediately re-opens a half-open trial
// that failed.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == HalfOpen {
		b.transitionLocked(Open)
		b.openUntil = time.Now().Add(b.openDuration)
		return
	}
	b.failureCount++
	if b.failureCount >= b.failureThreshold {
		b.transitionLocked(Open)
		b.openUntil = time.Now().Add(b.openDuration)
	}
}

func (b *CircuitBreaker) transitionLocked(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if to == Closed {
		b.failureCount = 0
	}
	if b.onTransition != nil {
		b.onTransition(b.component, from, to)
	}
}

// State returns the breaker's current state.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Do runs fn guarded by the breaker: rejects with KindCircuitOpen if the
// breaker is open, otherwise runs fn and records the outcome.
func (b *CircuitBreaker) Do(op string, fn func() error) error {
	if !b.Allow() {
		return rerr.New(rerr.KindCircuitOpen, op, nil)
	}
	if err := fn(); err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}
