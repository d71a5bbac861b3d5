package resilience

import (
	"errors"
	"fmt"
	"sync"
)

// ErrAlreadyRegistered is returned when a breaker name is reused.
var ErrAlreadyRegistered = errors.New("resilience: breaker already registered")

// Registry tracks named circuit breakers so a host process can expose
// their aggregate health.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{breakers: make(map[string]*CircuitBreaker)}
}

// Register adds a breaker under name.
func (r *Registry) Register(name string, cb *CircuitBreaker) error {
	if name == "" {
		return errors.New("resilience: breaker name is required")
	}
	if cb == nil {
		return errors.New("resilience: breaker is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.breakers[name]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.breakers[name] = cb
	return nil
}

// Get returns the breaker registered under name.
func (r *Registry) Get(name string) (*CircuitBreaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cb, ok := r.breakers[name]
	return cb, ok
}

// Snapshot returns current metrics for every registered breaker.
func (r *Registry) Snapshot() map[string]CircuitBreakerMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]CircuitBreakerMetrics, len(r.breakers))
	for name, cb := range r.breakers {
		out[name] = cb.Metrics()
	}
	return out
}

// Unhealthy returns the names of breakers not currently closed.
func (r *Registry) Unhealthy() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name, cb := range r.breakers {
		if cb.State() != StateClosed {
			names = append(names, name)
		}
	}
	return names
}

// Healthy reports whether every registered breaker is closed.
func (r *Registry) Healthy() bool {
	return len(r.Unhealthy()) == 0
}
