package statestore

import (
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiration
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is an in-process Store used by tests and dry runs. It honors the
// same TTL semantics as the durable store.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	closed  bool

	// Now is the clock used for expiration checks, overridable in tests.
	Now func() time.Time
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		Now:     time.Now,
	}
}

// Get implements Store.
func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	e, ok := m.entries[key]
	if !ok || e.expired(m.Now()) {
		delete(m.entries, key)
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set implements Store.
func (m *Memory) Set(key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	e := memoryEntry{value: stored}
	if ttl > 0 {
		e.expiresAt = m.Now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.entries, key)
	return nil
}

// IncrBy implements Store.
func (m *Memory) IncrBy(key string, delta int64, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	var current int64
	expiresAt := time.Time{}
	if e, ok := m.entries[key]; ok && !e.expired(m.Now()) {
		parsed, err := strconv.ParseInt(string(e.value), 10, 64)
		if err == nil {
			current = parsed
			expiresAt = e.expiresAt
		}
	}
	next := current + delta
	if expiresAt.IsZero() && ttl > 0 {
		expiresAt = m.Now().Add(ttl)
	}
	m.entries[key] = memoryEntry{
		value:     []byte(strconv.FormatInt(next, 10)),
		expiresAt: expiresAt,
	}
	return next, nil
}

// Close implements Store.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = nil
	return nil
}
