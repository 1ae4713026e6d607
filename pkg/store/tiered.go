package store

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Tiered puts an in-process ristretto layer in front of a backing Store for
// read-mostly keys like cached AI responses. Counters and deletes go to the
// backing store; deletes also evict the local layer so revocation holds.
type Tiered struct {
	local   *ristretto.Cache[string, []byte]
	backing Store
}

// NewTiered wraps backing with a local cache holding up to maxEntries
// values (each entry has a cost of 1).
func NewTiered(backing Store, maxEntries int64) (*Tiered, error) {
	local, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Tiered{local: local, backing: backing}, nil
}

// Get checks the local layer, then the backing store. Backing hits are
// promoted locally. A backing transport failure surfaces only when the
// local layer also misses.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := t.local.Get(key); ok {
		return bytes.Clone(v), true, nil
	}
	v, ok, err := t.backing.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	t.promote(ctx, key, v)
	return v, true, nil
}

// promote copies a backing hit into the local layer with the backing
// entry's remaining lifetime, so the local copy never outlives it. An
// unknown lifetime skips promotion rather than risk serving stale data.
func (t *Tiered) promote(ctx context.Context, key string, val []byte) {
	ttl, ok, err := t.backing.TTL(ctx, key)
	if err != nil || !ok {
		return
	}
	if ttl > 0 {
		t.local.SetWithTTL(key, bytes.Clone(val), 1, ttl)
	} else {
		t.local.Set(key, bytes.Clone(val), 1)
	}
	t.local.Wait()
}

// Set writes to the backing store first, then the local layer.
func (t *Tiered) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	err := t.backing.Set(ctx, key, val, ttl)
	t.local.SetWithTTL(key, bytes.Clone(val), 1, ttl)
	t.local.Wait()
	return err
}

// Delete removes the entry from both layers.
func (t *Tiered) Delete(ctx context.Context, key string) error {
	t.local.Del(key)
	return t.backing.Delete(ctx, key)
}

// Increment passes through to the backing store; counters are never cached
// locally.
func (t *Tiered) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	return t.backing.Increment(ctx, key, window)
}

// TTL reports the backing entry's remaining lifetime; the backing store
// owns expiry.
func (t *Tiered) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	return t.backing.TTL(ctx, key)
}

// Ping checks the backing store.
func (t *Tiered) Ping(ctx context.Context) error { return t.backing.Ping(ctx) }

// Close releases both layers.
func (t *Tiered) Close() error {
	t.local.Close()
	return t.backing.Close()
}
