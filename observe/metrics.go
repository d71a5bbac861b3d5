package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/relayops/relaykit/resilience"
)

// Metrics records resilience events through an OpenTelemetry meter.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: recording is best-effort and must not panic.
type Metrics struct {
	transitions metric.Int64Counter
	retries     metric.Int64Counter
	rejections  metric.Int64Counter
	retryDelay  metric.Float64Histogram
}

// NewMetrics creates a Metrics instance on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	transitions, err := meter.Int64Counter(
		"relay.breaker.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter(
		"relay.retry.attempts",
		metric.WithDescription("Retry attempts issued after a failed call"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	rejections, err := meter.Int64Counter(
		"relay.ratelimit.rejections",
		metric.WithDescription("Calls rejected by a keyed rate limit"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	retryDelay, err := meter.Float64Histogram(
		"relay.retry.delay_ms",
		metric.WithDescription("Backoff delay before each retry in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		transitions: transitions,
		retries:     retries,
		rejections:  rejections,
		retryDelay:  retryDelay,
	}, nil
}

// BreakerHook returns an OnStateChange callback that counts transitions
// for the named breaker.
func (m *Metrics) BreakerHook(name string) func(from, to resilience.State) {
	return func(from, to resilience.State) {
		m.transitions.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("breaker.name", name),
			attribute.String("breaker.from", from.String()),
			attribute.String("breaker.to", to.String()),
		))
	}
}

// RetryHook returns an OnRetry callback that counts retries and records
// the backoff delay for the named operation.
func (m *Metrics) RetryHook(name string) func(attempt int, delay time.Duration, err error) {
	return func(attempt int, delay time.Duration, err error) {
		opt := metric.WithAttributes(
			attribute.String("retry.operation", name),
			attribute.Int("retry.attempt", attempt),
		)
		m.retries.Add(context.Background(), 1, opt)
		m.retryDelay.Record(context.Background(), float64(delay.Milliseconds()), opt)
	}
}

// LimitHook returns an OnLimit callback that counts rejections for the
// named limiter. The rejected key is recorded as an attribute; callers
// with high-cardinality keys should pass a bucketing name instead.
func (m *Metrics) LimitHook(name string) func(key string) {
	return func(key string) {
		m.rejections.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("limiter.name", name),
			attribute.String("limiter.key", key),
		))
	}
}
