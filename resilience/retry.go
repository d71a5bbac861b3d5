package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// JitterFunc produces the random noise added to each backoff delay.
type JitterFunc func() time.Duration

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt, so
	// the operation runs at most MaxRetries+1 times.
	// Default: 3
	MaxRetries int

	// BaseDelay is the delay before the first retry. The delay before
	// retry k is min(BaseDelay * 2^(k-1) + jitter, MaxDelay).
	// Default: 1 second
	BaseDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 30 seconds
	MaxDelay time.Duration

	// RetryIf determines whether an error should trigger a retry.
	// Non-retryable errors are returned immediately with no delay.
	// Default: IsTransient
	RetryIf func(err error) bool

	// OnRetry is called before each backoff sleep, for observability
	// only. A panicking callback is recovered and never alters the
	// retry outcome.
	OnRetry func(attempt int, delay time.Duration, err error)

	// Jitter supplies the per-retry noise that decorrelates concurrent
	// retriers. Injected in tests for deterministic delays.
	// Default: uniform random in [0, 1s)
	Jitter JitterFunc
}

// Retry implements retry with exponential backoff and jitter.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.RetryIf == nil {
		config.RetryIf = IsTransient
	}
	if config.Jitter == nil {
		config.Jitter = defaultJitter
	}

	return &Retry{config: config}
}

// defaultJitter returns a uniform random duration in [0, 1s).
func defaultJitter() time.Duration {
	// #nosec G404 -- jitter is non-cryptographic timing variance.
	return time.Duration(rand.Int64N(int64(time.Second)))
}

// Execute runs the operation, retrying transient failures with
// exponential backoff.
//
// The final attempt's error is returned unchanged: callers cannot tell
// "failed once" from "failed after N retries" except via OnRetry.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.config.RetryIf(err) {
			return err
		}
		if attempt >= r.config.MaxRetries {
			return lastErr
		}

		delay := r.backoff(attempt + 1)
		r.notifyRetry(attempt+1, delay, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// DoRetry runs a value-returning operation with retry. On failure the
// zero value is returned alongside the final attempt's error.
func DoRetry[T any](ctx context.Context, r *Retry, op func(context.Context) (T, error)) (T, error) {
	var out T
	err := r.Execute(ctx, func(ctx context.Context) error {
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

// backoff computes the delay before retry k (1-indexed):
// min(BaseDelay * 2^(k-1) + jitter, MaxDelay).
func (r *Retry) backoff(k int) time.Duration {
	delay := time.Duration(float64(r.config.BaseDelay) * math.Pow(2, float64(k-1)))
	if delay <= 0 || delay > r.config.MaxDelay {
		// Overflow or past the cap before jitter.
		return r.config.MaxDelay
	}

	delay += r.config.Jitter()
	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}
	return delay
}

// notifyRetry invokes OnRetry, isolating the retry loop from a
// misbehaving callback.
func (r *Retry) notifyRetry(attempt int, delay time.Duration, err error) {
	if r.config.OnRetry == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	r.config.OnRetry(attempt, delay, err)
}

// Config returns the retry configuration after defaulting.
func (r *Retry) Config() RetryConfig {
	return r.config
}
