// Package store provides the key-value store behind the response cache,
// sessions, and rate-limit counters. Values are opaque bytes with optional
// expiry; counters increment atomically at the store level.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable distinguishes transport failures from plain misses. The
// cache is an optimization, never a source of truth: callers treat it as
// recoverable and fall back to computing the value.
var ErrUnavailable = errors.New("store unavailable")

// Store is the contract shared by the Redis and in-memory implementations.
type Store interface {
	// Get retrieves a value by key. The boolean indicates presence; a
	// missing key is not an error. A non-nil error wraps ErrUnavailable.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value under key. A zero TTL means no automatic expiry.
	// Overwrites any prior value.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error

	// Delete removes the entry. Deleting a missing key succeeds silently.
	Delete(ctx context.Context, key string) error

	// Increment atomically increments a counter, initializing it to 1 with
	// the window TTL on first use, and returns the post-increment count.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)

	// TTL reports the remaining lifetime of key. The boolean indicates
	// presence; a zero duration on a present key means no expiry.
	TTL(ctx context.Context, key string) (time.Duration, bool, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}
