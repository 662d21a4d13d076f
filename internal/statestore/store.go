// Package statestore abstracts the shared key-value store that holds
// rate-limit buckets, circuit-breaker state, robots and response caches.
// Concurrent import runs coordinate through this store, so every
// implementation must apply increments atomically.
package statestore

import (
	"errors"
	"time"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("statestore: closed")

// Store is a TTL-aware key-value store shared across processes.
type Store interface {
	// Get returns the value for key, and whether a live entry exists.
	Get(key string) ([]byte, bool, error)

	// Set stores value under key. A zero ttl means no expiration.
	Set(key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// IncrBy atomically adds delta to the integer counter at key and
	// returns the new value. A missing or expired key counts as zero.
	// The ttl applies from the first increment of a fresh counter.
	IncrBy(key string, delta int64, ttl time.Duration) (int64, error)

	// Close releases store resources.
	Close() error
}
