package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Sentinel errors for resilience operations. Rejections raised by this
// package are always distinguishable from the wrapped operation's own
// errors via errors.Is against these sentinels.
var (
	// ErrCircuitOpen is returned when the circuit breaker refuses a call.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRateLimitExceeded is returned when a rate limit is exceeded.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("resilience: operation timed out")
)

// CircuitOpenError is the rejection raised by a circuit breaker. It
// matches ErrCircuitOpen under errors.Is and carries the state that
// caused the rejection plus a hint for when a retry may be admitted.
type CircuitOpenError struct {
	// State is the breaker state at rejection time (open, or half-open
	// with the trial budget exhausted).
	State State

	// RetryAfter is how long until the breaker will admit a trial call.
	// Zero when the breaker is half-open (a trial slot may free up at
	// any time).
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("resilience: circuit breaker is %s, retry after %s", e.State, e.RetryAfter)
	}
	return fmt.Sprintf("resilience: circuit breaker is %s", e.State)
}

// Is reports whether target is ErrCircuitOpen.
func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// RateLimitError is the rejection raised by a keyed limiter. It matches
// ErrRateLimitExceeded under errors.Is. ResetAt lets callers derive a
// Retry-After value; mapping to HTTP status codes is their concern.
type RateLimitError struct {
	// Key is the identity whose budget is exhausted.
	Key string

	// Limit is the per-window budget that was exceeded.
	Limit int

	// ResetAt is when the key's window expires and its count resets.
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("resilience: rate limit of %d exceeded for key %q", e.Limit, e.Key)
}

// Is reports whether target is ErrRateLimitExceeded.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimitExceeded
}

// RetryAfter returns the remaining window for the limited key, never
// negative.
func (e *RateLimitError) RetryAfter(now time.Time) time.Duration {
	if d := e.ResetAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Coder is implemented by errors that carry a stable machine-readable
// code. Retry classification inspects codes, never message text.
type Coder interface {
	ErrorCode() string
}

// TransientError wraps a cause with a transient error code, marking it
// retryable for the default classifier.
type TransientError struct {
	Code string
	Err  error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

// ErrorCode returns the transient code.
func (e *TransientError) ErrorCode() string { return e.Code }

// Unwrap returns the wrapped cause.
func (e *TransientError) Unwrap() error { return e.Err }

// Transient error codes recognized by the default retry classifier.
const (
	CodeTimeout           = "timeout"
	CodeConnectionReset   = "connection_reset"
	CodeConnectionRefused = "connection_refused"
	CodeDNSFailure        = "dns_failure"
	CodeRateLimited       = "rate_limited"
	CodeServerError       = "server_error"
	CodeUnavailable       = "unavailable"
)

var transientCodes = map[string]bool{
	CodeTimeout:           true,
	CodeConnectionReset:   true,
	CodeConnectionRefused: true,
	CodeDNSFailure:        true,
	CodeRateLimited:       true,
	CodeServerError:       true,
	CodeUnavailable:       true,
}

// IsTransient reports whether err looks like a transient failure worth
// retrying. An error qualifies when any link in its chain carries a
// transient code, is a net.Error timeout, or is a wrapped deadline
// expiry. Rejections raised by this package never qualify.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrRateLimitExceeded) || errors.Is(err, ErrBulkheadFull) {
		return false
	}

	var coder Coder
	if errors.As(err, &coder) && transientCodes[coder.ErrorCode()] {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout)
}
