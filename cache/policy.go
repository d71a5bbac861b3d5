package cache

import "time"

// Policy bounds a store's size and entry lifetime.
type Policy struct {
	// Capacity is the maximum number of tracked keys.
	// Default: 500
	Capacity int

	// TTL is how long an entry lives after insertion.
	// Default: 1 minute
	TTL time.Duration
}

// DefaultPolicy returns the default store policy.
// Capacity: 500 keys, TTL: 1 minute.
func DefaultPolicy() Policy {
	return Policy{
		Capacity: 500,
		TTL:      time.Minute,
	}
}

// normalize applies defaults to unset fields.
func (p Policy) normalize() Policy {
	if p.Capacity <= 0 {
		p.Capacity = 500
	}
	if p.TTL <= 0 {
		p.TTL = time.Minute
	}
	return p
}
