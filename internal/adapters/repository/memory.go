package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/okian/squadmetrics/pkg/metrics"
)

// StoreMemory names the in-process store.
const StoreMemory = "memory"

// MemoryStore keeps the snapshot in process. Readers never block writers.
type MemoryStore struct {
	opts   options
	snap   atomic.Pointer[Snapshot]
	closed atomic.Bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{opts: defaultOptions()}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// Name implements Store.
func (s *MemoryStore) Name() string { return StoreMemory }

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context) (Snapshot, error) {
	start := time.Now()
	defer func() {
		metrics.RecordCacheOperationLatency(StoreMemory, "load", float64(time.Since(start).Microseconds())/1000)
	}()

	if s.closed.Load() {
		return Snapshot{}, ErrClosed
	}
	snap := s.snap.Load()
	if snap == nil {
		metrics.RecordCacheMiss(StoreMemory, "not_found")
		return Snapshot{}, ErrNotFound
	}
	if snap.Expired(s.opts.now()) {
		metrics.RecordCacheMiss(StoreMemory, "expired")
		return *snap, ErrExpired
	}
	metrics.RecordCacheHit(StoreMemory)
	return *snap, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if !snap.ExpiresAt.After(snap.FetchedAt) {
		return ErrInvalidTTL
	}
	s.snap.Store(&snap)
	metrics.UpdateCachePayloadSize(len(snap.Payload))
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	s.snap.Store(nil)
	return nil
}
