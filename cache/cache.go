package cache

import (
	"errors"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a store key.
const MaxKeyLength = 512

// Sentinel errors for store operations.
var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Store is a bounded key/value store with TTL expiry.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Get never errors; it returns (zero, false) on miss or expiry.
// - Add may evict the least-recently-used entry to stay within capacity.
type Store[V any] interface {
	// Get retrieves a value. Returns (zero, false) on miss or expiry.
	// A hit marks the entry as recently used.
	Get(key string) (V, bool)

	// Add stores a value, creating or replacing the entry for key.
	// The entry expires TTL after this call.
	Add(key string, value V)

	// Delete removes an entry. Returns false if the key was not present.
	Delete(key string) bool

	// Len reports the number of live entries.
	Len() int

	// Purge removes all entries.
	Purge()
}

// ValidateKey checks whether a key is acceptable for storage.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
