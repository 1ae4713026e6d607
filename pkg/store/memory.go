package store

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store for tests and single-node development. Its
// clock is injectable so TTL behavior can be exercised without sleeping.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	val       []byte
	count     int64
	expiresAt time.Time // zero means no expiry
}

// NewMemory creates an in-memory store using the real clock.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memEntry), now: time.Now}
}

// NewMemoryWithClock creates an in-memory store with a custom clock.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{entries: make(map[string]memEntry), now: now}
}

func (m *Memory) expired(e memEntry) bool {
	return !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt)
}

// Get retrieves a value by key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || m.expired(e) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return bytes.Clone(e.val), true, nil
}

// Set stores a value under key with the given TTL.
func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memEntry{val: bytes.Clone(val)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Delete removes the entry. Idempotent.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Increment bumps the counter, starting a new window when the previous one
// has lapsed.
func (m *Memory) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || m.expired(e) {
		e = memEntry{}
		if window > 0 {
			e.expiresAt = m.now().Add(window)
		}
	}
	e.count++
	m.entries[key] = e
	return e.count, nil
}

// TTL reports the remaining lifetime of key.
func (m *Memory) TTL(_ context.Context, key string) (time.Duration, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || m.expired(e) {
		return 0, false, nil
	}
	if e.expiresAt.IsZero() {
		return 0, true, nil
	}
	return e.expiresAt.Sub(m.now()), true, nil
}

// Ping always succeeds for the in-memory store.
func (m *Memory) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() error { return nil }
