package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock drives the lazy open-to-half-open transition without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	if cb.State() != StateClosed {
		t.Errorf("Initial state = %v, want closed", cb.State())
	}
	if cb.config.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", cb.config.FailureThreshold)
	}
	if cb.config.ResetTimeout != 60*time.Second {
		t.Errorf("ResetTimeout = %v, want 60s", cb.config.ResetTimeout)
	}
	if cb.config.HalfOpenMaxCalls != 3 {
		t.Errorf("HalfOpenMaxCalls = %d, want 3", cb.config.HalfOpenMaxCalls)
	}
}

func TestCircuitBreaker_OpenAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     time.Hour,
	})

	testErr := errors.New("test error")

	for i := 0; i < 2; i++ {
		err := cb.Execute(context.Background(), func(ctx context.Context) error {
			return testErr
		})
		if err != testErr {
			t.Errorf("Execute() error = %v, want %v", err, testErr)
		}
		if cb.State() != StateClosed {
			t.Errorf("After %d failures, state = %v, want closed", i+1, cb.State())
		}
	}

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		return testErr
	})
	if err != testErr {
		t.Errorf("Execute() error = %v, want %v", err, testErr)
	}
	if cb.State() != StateOpen {
		t.Errorf("After 3 failures, state = %v, want open", cb.State())
	}

	// Rejected without invoking the operation.
	err = cb.Execute(context.Background(), func(ctx context.Context) error {
		t.Error("operation must not run while open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() when open = %v, want ErrCircuitOpen", err)
	}

	var openErr *CircuitOpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("Execute() when open = %T, want *CircuitOpenError", err)
	}
	if openErr.State != StateOpen {
		t.Errorf("CircuitOpenError.State = %v, want open", openErr.State)
	}
	if openErr.RetryAfter <= 0 {
		t.Errorf("CircuitOpenError.RetryAfter = %v, want > 0", openErr.RetryAfter)
	}
}

func TestCircuitBreaker_RejectionsNotCountedAsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
	})

	testErr := errors.New("test error")
	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), func(ctx context.Context) error {
			return testErr
		})
	}

	if got := cb.FailureCount(); got != 2 {
		t.Fatalf("FailureCount() = %d, want 2", got)
	}

	// Rejections while open must not feed the counter.
	for i := 0; i < 5; i++ {
		_ = cb.Execute(context.Background(), func(ctx context.Context) error {
			return nil
		})
	}

	if got := cb.FailureCount(); got != 2 {
		t.Errorf("FailureCount() after rejections = %d, want 2", got)
	}
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     time.Second,
		Clock:            clock.Now,
	})

	testErr := errors.New("downstream unavailable")
	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), func(ctx context.Context) error {
			return testErr
		})
	}
	if cb.State() != StateOpen {
		t.Fatalf("State = %v, want open", cb.State())
	}

	// Immediate call is rejected, operation untouched.
	invoked := false
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		invoked = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() = %v, want ErrCircuitOpen", err)
	}
	if invoked {
		t.Error("operation invoked while open")
	}

	// After the timeout the next call is admitted as a trial.
	clock.Advance(time.Second)

	err = cb.Execute(context.Background(), func(ctx context.Context) error {
		invoked = true
		return nil
	})
	if err != nil {
		t.Errorf("Execute() after timeout = %v, want nil", err)
	}
	if !invoked {
		t.Error("trial call did not invoke the operation")
	}
	if cb.State() != StateClosed {
		t.Errorf("State after successful trial = %v, want closed", cb.State())
	}
	if got := cb.FailureCount(); got != 0 {
		t.Errorf("FailureCount() after recovery = %d, want 0", got)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Second,
		Clock:            clock.Now,
	})

	testErr := errors.New("still broken")
	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		return testErr
	})
	clock.Advance(time.Second)

	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		return testErr
	})
	if cb.State() != StateOpen {
		t.Errorf("State after failed trial = %v, want open", cb.State())
	}

	// The cooldown restarted at the trial failure.
	clock.Advance(500 * time.Millisecond)
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		t.Error("operation must not run during restarted cooldown")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_HalfOpenBudgetWithInFlightCalls(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Second,
		HalfOpenMaxCalls: 2,
		Clock:            clock.Now,
	})

	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("fail")
	})
	clock.Advance(time.Second)

	// Two trial calls enter and block before either resolves.
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cb.Execute(context.Background(), func(ctx context.Context) error {
				started <- struct{}{}
				<-release
				return nil
			})
		}()
	}
	<-started
	<-started

	// Budget reserved before the trials resolve: a third call is refused.
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		t.Error("operation must not run beyond the trial budget")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() beyond budget = %v, want ErrCircuitOpen", err)
	}

	var openErr *CircuitOpenError
	if errors.As(err, &openErr) && openErr.State != StateHalfOpen {
		t.Errorf("CircuitOpenError.State = %v, want half-open", openErr.State)
	}

	close(release)
	wg.Wait()

	if cb.State() != StateClosed {
		t.Errorf("State after successful trials = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     time.Hour,
	})

	testErr := errors.New("test error")

	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return testErr })
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return testErr })
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return nil })

	if got := cb.FailureCount(); got != 0 {
		t.Fatalf("FailureCount() after success = %d, want 0", got)
	}

	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return testErr })
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return testErr })

	if cb.State() != StateClosed {
		t.Errorf("State = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Hour,
	})

	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("fail")
	})
	if cb.State() != StateOpen {
		t.Fatalf("State = %v, want open", cb.State())
	}

	cb.Reset()

	if cb.State() != StateClosed {
		t.Errorf("After reset, state = %v, want closed", cb.State())
	}
	if got := cb.FailureCount(); got != 0 {
		t.Errorf("After reset, FailureCount() = %d, want 0", got)
	}
}

func TestCircuitBreaker_OnStateChangeFiresOncePerTransition(t *testing.T) {
	clock := newFakeClock()

	var mu sync.Mutex
	var transitions []struct{ from, to State }
	record := func(from, to State) {
		mu.Lock()
		transitions = append(transitions, struct{ from, to State }{from, to})
		mu.Unlock()
	}

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Second,
		Clock:            clock.Now,
		OnStateChange:    record,
	})

	testErr := errors.New("fail")
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return testErr })

	// Repeated rejections must not re-fire the callback.
	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), func(ctx context.Context) error { return nil })
	}

	clock.Advance(time.Second)
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return nil })

	mu.Lock()
	defer mu.Unlock()

	want := []struct{ from, to State }{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}
	if len(transitions) != len(want) {
		t.Fatalf("got %d transitions, want %d: %v", len(transitions), len(want), transitions)
	}
	for i, tr := range transitions {
		if tr != want[i] {
			t.Errorf("transition %d = %v -> %v, want %v -> %v", i, tr.from, tr.to, want[i].from, want[i].to)
		}
	}
}

func TestDo_ReturnsValue(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	got, err := Do(context.Background(), cb, func(ctx context.Context) (string, error) {
		return "delivered", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != "delivered" {
		t.Errorf("Do() = %q, want %q", got, "delivered")
	}
}

func TestDo_ZeroValueOnRejection(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Hour,
	})
	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("fail")
	})

	got, err := Do(context.Background(), cb, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Do() error = %v, want ErrCircuitOpen", err)
	}
	if got != 0 {
		t.Errorf("Do() = %d, want zero value", got)
	}
}

func TestCircuitBreaker_IsFailureOverride(t *testing.T) {
	benign := errors.New("not found")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Hour,
		IsFailure: func(err error) bool {
			return err != nil && !errors.Is(err, benign)
		},
	})

	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return benign })

	if cb.State() != StateClosed {
		t.Errorf("State after benign error = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_Metrics(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 5})

	testErr := errors.New("test error")
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return testErr })
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return testErr })

	m := cb.Metrics()
	if m.State != StateClosed {
		t.Errorf("Metrics.State = %v, want closed", m.State)
	}
	if m.Failures != 2 {
		t.Errorf("Metrics.Failures = %d, want 2", m.Failures)
	}
	if m.LastFailure.IsZero() {
		t.Error("Metrics.LastFailure is zero, want recorded")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("State.String() = %v, want %v", got, tt.want)
			}
		})
	}
}
