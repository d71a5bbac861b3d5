// Package cache provides a bounded in-memory store with TTL expiry and
// LRU eviction.
//
// The store tracks at most Policy.Capacity keys. When a new key would
// exceed the capacity, the least-recently-used entry is evicted. Entries
// also expire Policy.TTL after insertion, independent of access.
//
// The package exists to back key-scoped bookkeeping (rate-limit windows,
// per-key counters) where unbounded growth would be a memory leak: a
// store keyed by client IP or tenant ID must not grow without limit.
//
//	store := cache.NewMemory[int](cache.Policy{Capacity: 500, TTL: time.Minute})
//	store.Add("ip:203.0.113.7", 1)
//	n, ok := store.Get("ip:203.0.113.7")
package cache
