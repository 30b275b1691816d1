package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStore_LoadSave(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(WithClock(clock.Now))

	if store.Name() != StoreMemory {
		t.Errorf("expected name %q, got %q", StoreMemory, store.Name())
	}

	// Empty store
	if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	snap := NewSnapshot([]byte("Player,Aim\n"), "file", clock.Now(), 20*time.Second)
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != snap.ID {
		t.Errorf("expected id %s, got %s", snap.ID, got.ID)
	}
	if string(got.Payload) != "Player,Aim\n" {
		t.Errorf("unexpected payload %q", got.Payload)
	}

	// Still fresh just before expiry
	clock.Advance(19 * time.Second)
	if _, err := store.Load(ctx); err != nil {
		t.Fatalf("expected fresh snapshot, got %v", err)
	}

	// Expired at the TTL boundary, but still returned for stale reads
	clock.Advance(time.Second)
	stale, err := store.Load(ctx)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if stale.ID != snap.ID {
		t.Errorf("expected stale snapshot to be returned")
	}
}

func TestMemoryStore_Replace(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	first := NewSnapshot([]byte("a"), "file", now, time.Minute)
	second := NewSnapshot([]byte("b"), "file", now, time.Minute)
	if first.ID == second.ID {
		t.Fatal("expected distinct snapshot ids")
	}

	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("expected latest snapshot")
	}
}

func TestMemoryStore_InvalidTTL(t *testing.T) {
	store := NewMemoryStore()
	snap := NewSnapshot([]byte("a"), "file", time.Now(), 0)
	if err := store.Save(context.Background(), snap); !errors.Is(err, ErrInvalidTTL) {
		t.Fatalf("expected ErrInvalidTTL, got %v", err)
	}
}

func TestMemoryStore_Close(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Save(ctx, NewSnapshot([]byte("a"), "file", time.Now(), time.Minute))

	if err := store.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := store.Save(ctx, NewSnapshot([]byte("b"), "file", time.Now(), time.Minute)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = store.Save(ctx, NewSnapshot([]byte("x"), "file", time.Now(), time.Minute))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := store.Load(ctx); err != nil && !errors.Is(err, ErrNotFound) {
					t.Errorf("unexpected error: %v", err)
				}
			}
		}()
	}
	wg.Wait()
}
