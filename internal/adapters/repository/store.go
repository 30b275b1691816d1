// Package repository holds the time-boxed cache of raw stat sheet snapshots.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Snapshot is one fetched copy of the raw stat sheet.
type Snapshot struct {
	ID        uuid.UUID `json:"id"`
	Source    string    `json:"source"`
	Payload   []byte    `json:"payload"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSnapshot stamps a payload with a fresh id and its expiry.
func NewSnapshot(payload []byte, source string, fetchedAt time.Time, ttl time.Duration) Snapshot {
	return Snapshot{
		ID:        uuid.New(),
		Source:    source,
		Payload:   payload,
		FetchedAt: fetchedAt,
		ExpiresAt: fetchedAt.Add(ttl),
	}
}

// Expired reports whether the snapshot is stale at now.
func (s Snapshot) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Age is the time elapsed since the fetch.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// Store caches the most recent snapshot.
type Store interface {
	// Load returns the cached snapshot.
	// Returns ErrNotFound when nothing is cached and ErrExpired when the
	// cached snapshot outlived its TTL.
	Load(ctx context.Context) (Snapshot, error)

	// Save replaces the cached snapshot.
	Save(ctx context.Context, snap Snapshot) error

	// Name identifies the backend, used as a metrics label.
	Name() string

	Close() error
}
