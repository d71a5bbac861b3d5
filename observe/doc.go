// Package observe bridges resilience callbacks to telemetry sinks.
//
// The resilience package reports what happens through small callbacks
// (state changes, retries, limit rejections) and stays free of any
// telemetry dependency of its own. This package turns those callbacks
// into OpenTelemetry metrics and structured log lines.
//
// The host supplies the metric.Meter; exporter and pipeline choice stay
// with the host process.
//
//	m, _ := observe.NewMetrics(meter)
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    OnStateChange: m.BreakerHook("email-api"),
//	})
package observe
