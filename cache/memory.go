package cache

import (
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is an in-memory Store backed by an expirable LRU.
//
// Capacity is exact: the store never holds more than Policy.Capacity
// entries, evicting the least-recently-used one under pressure. Entries
// expire Policy.TTL after insertion; Get does not extend the lifetime.
type Memory[V any] struct {
	lru    *expirable.LRU[string, V]
	policy Policy
}

// NewMemory creates an in-memory store with the given policy.
// Zero-value policy fields fall back to DefaultPolicy.
func NewMemory[V any](policy Policy) *Memory[V] {
	policy = policy.normalize()
	return &Memory[V]{
		lru:    expirable.NewLRU[string, V](policy.Capacity, nil, policy.TTL),
		policy: policy,
	}
}

// Get retrieves a value. Returns (zero, false) on miss or expiry.
func (m *Memory[V]) Get(key string) (V, bool) {
	return m.lru.Get(key)
}

// Add stores a value, evicting the oldest entry if at capacity.
func (m *Memory[V]) Add(key string, value V) {
	m.lru.Add(key, value)
}

// Delete removes an entry. Idempotent.
func (m *Memory[V]) Delete(key string) bool {
	return m.lru.Remove(key)
}

// Len reports the number of live entries.
func (m *Memory[V]) Len() int {
	return m.lru.Len()
}

// Purge removes all entries.
func (m *Memory[V]) Purge() {
	m.lru.Purge()
}

// Policy returns the effective policy after defaulting.
func (m *Memory[V]) Policy() Policy {
	return m.policy
}

// Ensure Memory implements Store.
var _ Store[int] = (*Memory[int])(nil)
