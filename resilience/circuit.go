package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is rejecting all calls.
	StateOpen
	// StateHalfOpen means the circuit is admitting trial calls to test
	// whether the dependency recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before the
	// circuit opens.
	// Default: 5
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before admitting
	// trial calls.
	// Default: 60 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxCalls is the number of trial calls admitted while
	// half-open.
	// Default: 3
	HalfOpenMaxCalls int

	// OnStateChange is called once per actual transition. Repeated
	// rejections in the same state do not re-fire it. The callback runs
	// under the breaker's lock and must return quickly.
	OnStateChange func(from, to State)

	// IsFailure determines whether an error counts toward the failure
	// threshold.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool

	// Clock supplies the current time. Overridden in tests to drive the
	// open-to-half-open transition without sleeping.
	// Default: time.Now
	Clock func() time.Time
}

// CircuitBreaker guards a downstream operation, refusing to invoke it
// once it appears persistently broken.
//
// The open-to-half-open transition is evaluated lazily at call time by
// comparing elapsed time against ResetTimeout; no background timer runs.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	lastFailure   time.Time
	halfOpenCalls int
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 60 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 3
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Execute runs the operation through the circuit breaker.
//
// It returns the operation's error unchanged after recording it, or a
// *CircuitOpenError (matching ErrCircuitOpen) when the call is refused
// without invoking the operation. Rejections never count as failures:
// only genuine operation failures feed the threshold, so an outage is
// not extended by its own rejections.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := op(ctx)
	cb.record(err)
	return err
}

// Do runs a value-returning operation through the circuit breaker. On
// rejection or failure the zero value is returned alongside the error.
func Do[T any](ctx context.Context, cb *CircuitBreaker, op func(context.Context) (T, error)) (T, error) {
	var out T
	err := cb.Execute(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// State returns the current circuit state, applying the lazy
// open-to-half-open transition if the reset timeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// FailureCount returns the consecutive failure count.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset forces the circuit closed and zeroes all counters. Intended for
// manual recovery and test setup.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.halfOpenCalls = 0
	cb.lastFailure = time.Time{}
	cb.transitionLocked(StateClosed)
}

// admit decides whether a call may proceed. The decision and any state
// mutation (including reserving a half-open trial slot) commit under the
// lock before the operation runs, so concurrent callers cannot overrun
// the trial budget while earlier trials are still in flight.
func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case StateOpen:
		remaining := cb.config.ResetTimeout - cb.config.Clock().Sub(cb.lastFailure)
		return &CircuitOpenError{State: StateOpen, RetryAfter: remaining}
	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.config.HalfOpenMaxCalls {
			return &CircuitOpenError{State: StateHalfOpen}
		}
		cb.halfOpenCalls++
	}

	return nil
}

// record books the operation's outcome.
func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	isFailure := cb.config.IsFailure(err)

	switch cb.state {
	case StateClosed:
		if isFailure {
			cb.failures++
			cb.lastFailure = cb.config.Clock()
			if cb.failures >= cb.config.FailureThreshold {
				cb.transitionLocked(StateOpen)
			}
		} else {
			cb.failures = 0
		}

	case StateHalfOpen:
		if isFailure {
			// Trial failed, restart the cooldown.
			cb.lastFailure = cb.config.Clock()
			cb.transitionLocked(StateOpen)
		} else {
			cb.failures = 0
			cb.halfOpenCalls = 0
			cb.transitionLocked(StateClosed)
		}
	}
	// Results arriving while already open (a concurrent trial re-opened
	// the circuit) are ignored.
}

// currentStateLocked applies the lazy open-to-half-open transition and
// returns the effective state. Callers must hold cb.mu.
func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && cb.config.Clock().Sub(cb.lastFailure) >= cb.config.ResetTimeout {
		cb.transitionLocked(StateHalfOpen)
	}
	return cb.state
}

// transitionLocked moves to a new state, firing OnStateChange only on an
// actual change. Callers must hold cb.mu.
func (cb *CircuitBreaker) transitionLocked(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	if to == StateHalfOpen {
		cb.halfOpenCalls = 0
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

// Metrics returns a snapshot of the breaker's counters.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerMetrics{
		State:         cb.currentStateLocked(),
		Failures:      cb.failures,
		HalfOpenCalls: cb.halfOpenCalls,
		LastFailure:   cb.lastFailure,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State         State
	Failures      int
	HalfOpenCalls int
	LastFailure   time.Time
}
