package resilience

import (
	"sync"
	"time"

	"github.com/relayops/relaykit/cache"
)

// KeyedLimiterConfig configures the keyed limiter.
type KeyedLimiterConfig struct {
	// Window is the fixed window over which calls are counted. A key's
	// count resets implicitly when its window entry expires.
	// Default: 60 seconds
	Window time.Duration

	// MaxKeys bounds the number of tracked keys. Under pressure the
	// least-recently-used key is evicted, which resets its count.
	// Default: 500
	MaxKeys int

	// OnLimit is called when a key is rejected, for observability only.
	OnLimit func(key string)
}

// KeyedLimiter bounds how often each key may invoke anything within a
// fixed window. Distinct keys are independent: exhausting one key's
// budget never affects another.
//
// Windows live in a capacity-bounded TTL store, so tracking arbitrary
// caller-supplied keys (IPs, tenant IDs) cannot grow without limit.
type KeyedLimiter struct {
	config KeyedLimiterConfig

	mu      sync.Mutex
	windows *cache.Memory[*limitWindow]
}

// limitWindow is the per-key count for the current window.
type limitWindow struct {
	count   int
	resetAt time.Time
}

// NewKeyedLimiter creates a new keyed limiter.
func NewKeyedLimiter(config KeyedLimiterConfig) *KeyedLimiter {
	if config.Window <= 0 {
		config.Window = 60 * time.Second
	}
	if config.MaxKeys <= 0 {
		config.MaxKeys = 500
	}

	return &KeyedLimiter{
		config: config,
		windows: cache.NewMemory[*limitWindow](cache.Policy{
			Capacity: config.MaxKeys,
			TTL:      config.Window,
		}),
	}
}

// Check counts one call for key and admits it if the window count stays
// within limit. Over-limit calls are rejected with a *RateLimitError
// (matching ErrRateLimitExceeded); rejected calls still consume nothing
// beyond their own count.
//
// The increment-and-compare runs under a single lock, so concurrent
// callers cannot slip past the limit.
func (kl *KeyedLimiter) Check(key string, limit int) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()

	w, ok := kl.windows.Get(key)
	if !ok {
		w = &limitWindow{resetAt: time.Now().Add(kl.config.Window)}
		kl.windows.Add(key, w)
	}
	w.count++

	if w.count > limit {
		if kl.config.OnLimit != nil {
			kl.config.OnLimit(key)
		}
		return &RateLimitError{Key: key, Limit: limit, ResetAt: w.resetAt}
	}
	return nil
}

// TrackedKeys reports the number of keys currently tracked.
func (kl *KeyedLimiter) TrackedKeys() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return kl.windows.Len()
}

// Forget drops a key's window, resetting its count.
func (kl *KeyedLimiter) Forget(key string) {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	kl.windows.Delete(key)
}

// Reset drops all tracked keys.
func (kl *KeyedLimiter) Reset() {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	kl.windows.Purge()
}
