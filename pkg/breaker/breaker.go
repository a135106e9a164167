package breaker

import (
	"errors"
	"sync"
	"time"
)

// State is the circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// ErrOpen is returned when the breaker rejects a call without attempting it.
var ErrOpen = errors.New("circuit breaker is open")

// StateChangeFunc is invoked after a state transition, outside the lock.
type StateChangeFunc func(name string, from, to State)

// Config holds breaker thresholds.
type Config struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	HalfOpenMaxCalls int
}

// DefaultConfig matches the production thresholds for the fast store.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// CircuitBreaker guards calls to an external dependency. After
// FailureThreshold consecutive failures it opens and fails fast; after
// RecoveryTimeout it admits up to HalfOpenMaxCalls probes, closing again on
// the first success.
type CircuitBreaker struct {
	name   string
	config Config

	mu            sync.Mutex
	state         State
	failureCount  int
	lastFailure   time.Time
	halfOpenCalls int

	onStateChange []StateChangeFunc
}

// New creates a circuit breaker in the closed state.
func New(name string, config Config) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 3
	}
	return &CircuitBreaker{
		name:   name,
		config: config,
		state:  StateClosed,
	}
}

// OnStateChange registers a transition callback. Every registered callback
// fires on each transition.
func (cb *CircuitBreaker) OnStateChange(fn StateChangeFunc) {
	cb.mu.Lock()
	cb.onStateChange = append(cb.onStateChange, fn)
	cb.mu.Unlock()
}

// notify invokes the registered callbacks. Caller must not hold cb.mu.
func (cb *CircuitBreaker) notify(fns []StateChangeFunc, from, to State) {
	for _, fn := range fns {
		fn(cb.name, from, to)
	}
}

// State returns the current state, applying the open -> half-open timeout.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refreshLocked()
	return cb.state
}

// Allow reports whether a call may proceed and reserves a probe slot when
// half-open. Callers must pair Allow with RecordSuccess or RecordFailure.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refreshLocked()

	switch cb.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.halfOpenCalls < cb.config.HalfOpenMaxCalls {
			cb.halfOpenCalls++
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess records a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	from := cb.state
	cb.failureCount = 0
	cb.halfOpenCalls = 0
	cb.state = StateClosed
	fns := cb.onStateChange
	cb.mu.Unlock()

	if from != StateClosed {
		cb.notify(fns, from, StateClosed)
	}
}

// RecordFailure records a failed call, opening the breaker when the
// threshold is reached or a half-open probe fails.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	from := cb.state
	cb.failureCount++
	cb.lastFailure = time.Now()

	opened := false
	if cb.state == StateHalfOpen || cb.failureCount >= cb.config.FailureThreshold {
		if cb.state != StateOpen {
			opened = true
		}
		cb.state = StateOpen
		cb.halfOpenCalls = 0
	}
	fns := cb.onStateChange
	cb.mu.Unlock()

	if opened {
		cb.notify(fns, from, StateOpen)
	}
}

// Execute runs fn under the breaker. When the breaker is open the call is
// rejected with ErrOpen without invoking fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.Allow() {
		return ErrOpen
	}
	if err := fn(); err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

// refreshLocked moves open -> half-open once the recovery timeout elapsed.
// Caller holds cb.mu.
func (cb *CircuitBreaker) refreshLocked() {
	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.config.RecoveryTimeout {
		from := cb.state
		cb.state = StateHalfOpen
		cb.halfOpenCalls = 0
		// Transition callbacks fire outside the lock elsewhere; the
		// timeout path runs inline and callbacks must not call back in.
		fns := cb.onStateChange
		go cb.notify(fns, from, StateHalfOpen)
	}
}
