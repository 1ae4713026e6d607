package store

import (
	"context"
	"testing"
	"time"
)

func TestTieredPromotesBackingHits(t *testing.T) {
	backing := NewMemory()
	tiered, err := NewTiered(backing, 100)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tiered.Close() })
	ctx := context.Background()

	// Write directly to the backing store, bypassing the local layer.
	if err := backing.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}

	v, ok, err := tiered.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected backing hit, got ok=%v err=%v", ok, err)
	}
	if string(v) != "v" {
		t.Fatalf("unexpected value %q", v)
	}

	// After promotion the value survives backing deletion until evicted.
	if err := backing.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := tiered.Get(ctx, "k"); !ok {
		t.Fatal("expected promoted local hit")
	}
}

func TestTieredPromotionHonorsBackingTTL(t *testing.T) {
	backing := NewMemory()
	tiered, err := NewTiered(backing, 100)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tiered.Close() })
	ctx := context.Background()

	if err := backing.Set(ctx, "k", []byte("v"), 50*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := tiered.Get(ctx, "k"); !ok {
		t.Fatal("expected backing hit")
	}

	// Both layers must agree once the entry's lifetime lapses.
	time.Sleep(120 * time.Millisecond)
	if _, ok, _ := tiered.Get(ctx, "k"); ok {
		t.Fatal("expired entry served from the local layer")
	}
}

func TestTieredDeleteEvictsBothLayers(t *testing.T) {
	backing := NewMemory()
	tiered, err := NewTiered(backing, 100)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tiered.Close() })
	ctx := context.Background()

	if err := tiered.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := tiered.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := tiered.Get(ctx, "k"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestTieredIncrementPassesThrough(t *testing.T) {
	backing := NewMemory()
	tiered, err := NewTiered(backing, 100)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tiered.Close() })
	ctx := context.Background()

	if _, err := tiered.Increment(ctx, "c", time.Minute); err != nil {
		t.Fatal(err)
	}
	got, err := backing.Increment(ctx, "c", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Fatalf("expected counter shared with backing store, got %d", got)
	}
}
