package observe

import (
	"time"

	"github.com/relayops/relaykit/resilience"
)

// LogStateChanges returns an OnStateChange callback that logs breaker
// transitions. Entry into open logs at warn, recovery at info.
func LogStateChanges(l Logger, name string) func(from, to resilience.State) {
	return func(from, to resilience.State) {
		fields := []Field{
			{Key: "breaker", Value: name},
			{Key: "from", Value: from.String()},
			{Key: "to", Value: to.String()},
		}
		if to == resilience.StateOpen {
			l.Warn("circuit breaker opened", fields...)
			return
		}
		l.Info("circuit breaker state changed", fields...)
	}
}

// LogRetries returns an OnRetry callback that logs each backoff.
func LogRetries(l Logger, name string) func(attempt int, delay time.Duration, err error) {
	return func(attempt int, delay time.Duration, err error) {
		l.Warn("retrying after failure",
			Field{Key: "operation", Value: name},
			Field{Key: "attempt", Value: attempt},
			Field{Key: "delay_ms", Value: delay.Milliseconds()},
			Field{Key: "error", Value: err.Error()},
		)
	}
}

// LogRateLimits returns an OnLimit callback that logs rejections.
func LogRateLimits(l Logger, name string) func(key string) {
	return func(key string) {
		l.Warn("rate limit exceeded",
			Field{Key: "limiter", Value: name},
			Field{Key: "key", Value: key},
		)
	}
}

// JoinStateHooks fans one OnStateChange callback out to several sinks.
func JoinStateHooks(hooks ...func(from, to resilience.State)) func(from, to resilience.State) {
	return func(from, to resilience.State) {
		for _, h := range hooks {
			if h != nil {
				h(from, to)
			}
		}
	}
}
