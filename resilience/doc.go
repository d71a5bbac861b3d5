// Package resilience protects callers from flaky or overloaded
// downstream dependencies.
//
// The patterns compose around an arbitrary caller-supplied operation:
//
//   - Circuit Breaker: tracks failure history and refuses to invoke an
//     operation once it appears persistently broken, admitting trial
//     calls after a cooldown.
//
//   - Retry: retries transiently-failing operations with exponential
//     backoff and jitter. Non-retryable errors surface immediately.
//
//   - Keyed Limiter: bounds how often each key (IP, tenant, API token)
//     may invoke anything within a fixed window, backed by a bounded
//     LRU store so arbitrary keys cannot leak memory.
//
//   - Rate Limiter: process-wide token bucket admission.
//
//   - Bulkhead: caps concurrent operations.
//
//   - Timeout: per-attempt deadline for operations that outlive their
//     usefulness.
//
// # Usage
//
// Each pattern works standalone or composed through an Executor:
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    FailureThreshold: 5,
//	    ResetTimeout:     time.Minute,
//	    HalfOpenMaxCalls: 3,
//	})
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxRetries: 3,
//	    BaseDelay:  time.Second,
//	    MaxDelay:   30 * time.Second,
//	})
//
//	limiter := resilience.NewKeyedLimiter(resilience.KeyedLimiterConfig{
//	    Window:  time.Minute,
//	    MaxKeys: 500,
//	})
//
//	if err := limiter.Check(clientIP, 100); err != nil {
//	    return err // surfaces *RateLimitError
//	}
//	err := cb.Execute(ctx, func(ctx context.Context) error {
//	    return retry.Execute(ctx, sendEmail)
//	})
//
// # Errors
//
// Rejections raised by this package are synthetic and always
// distinguishable from the wrapped operation's own errors: match
// ErrCircuitOpen, ErrRateLimitExceeded, ErrBulkheadFull, or ErrTimeout
// with errors.Is, or extract *CircuitOpenError and *RateLimitError with
// errors.As for retry-after details. The operation's own errors pass
// through with identity unchanged.
package resilience
