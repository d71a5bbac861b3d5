package resilience

import (
	"context"
	"time"
)

// Executor composes resilience patterns around one protected operation.
type Executor struct {
	keyedLimiter *KeyedLimiter
	limitKey     string
	keyLimit     int

	rateLimiter    *RateLimiter
	bulkhead       *Bulkhead
	circuitBreaker *CircuitBreaker
	retry          *Retry
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithKeyedLimit guards the executor with a per-key budget: every call
// counts against key's window with the given limit. Suits an executor
// bound to one tenant or downstream identity.
func WithKeyedLimit(kl *KeyedLimiter, key string, limit int) ExecutorOption {
	return func(e *Executor) {
		e.keyedLimiter = kl
		e.limitKey = key
		e.keyLimit = limit
	}
}

// WithRateLimiter adds a process-wide rate limit to the executor.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) {
		e.rateLimiter = rl
	}
}

// WithBulkhead adds concurrency isolation to the executor.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) {
		e.bulkhead = b
	}
}

// WithCircuitBreaker adds a circuit breaker to the executor.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.circuitBreaker = cb
	}
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// WithTimeout adds a per-attempt deadline to the executor.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout})
	}
}

// WithTimeoutConfig adds a configured timeout wrapper to the executor.
func WithTimeoutConfig(t *Timeout) ExecutorOption {
	return func(e *Executor) {
		e.timeout = t
	}
}

// Execute runs the operation through all configured patterns.
//
// Order, outermost first:
//  1. Keyed limit - per-identity admission
//  2. Rate limiter - process-wide admission
//  3. Bulkhead - concurrency cap
//  4. Circuit breaker - failure isolation
//  5. Retry - transient failure recovery
//  6. Timeout - per-attempt deadline
//
// Limiter rejections happen before the breaker sees the call, so they
// never count toward its failure threshold.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	execute := op

	if e.timeout != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.timeout.Execute(ctx, inner)
		}
	}

	if e.retry != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.retry.Execute(ctx, inner)
		}
	}

	if e.circuitBreaker != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.circuitBreaker.Execute(ctx, inner)
		}
	}

	if e.bulkhead != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.bulkhead.Execute(ctx, inner)
		}
	}

	if e.rateLimiter != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.rateLimiter.Execute(ctx, inner)
		}
	}

	if e.keyedLimiter != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			if err := e.keyedLimiter.Check(e.limitKey, e.keyLimit); err != nil {
				return err
			}
			return inner(ctx)
		}
	}

	return execute(ctx)
}
