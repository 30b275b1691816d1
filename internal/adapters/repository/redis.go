package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/okian/squadmetrics/pkg/metrics"
)

// StoreRedis names the redis-backed store.
const StoreRedis = "redis"

// RedisStore shares the snapshot between service replicas. Keys outlive the
// snapshot TTL by the stale grace; Load decides expiry from ExpiresAt.
type RedisStore struct {
	client redis.UniversalClient
	opts   options
}

// NewRedisStore wraps a redis client.
func NewRedisStore(client redis.UniversalClient, opts ...Option) *RedisStore {
	s := &RedisStore{client: client, opts: defaultOptions()}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// Name implements Store.
func (s *RedisStore) Name() string { return StoreRedis }

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	defer func() {
		metrics.RecordCacheOperationLatency(StoreRedis, "load", float64(time.Since(start).Microseconds())/1000)
	}()

	raw, err := s.client.Get(ctx, s.opts.key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheMiss(StoreRedis, "not_found")
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		metrics.RecordErrorByComponent("repository", "redis_get")
		return Snapshot{}, fmt.Errorf("redis get %s: %w", s.opts.key, err)
	}

	snap, err := decodeSnapshot(raw)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "decode")
		return Snapshot{}, err
	}
	if snap.Expired(s.opts.now()) {
		metrics.RecordCacheMiss(StoreRedis, "expired")
		return snap, ErrExpired
	}
	metrics.RecordCacheHit(StoreRedis)
	return snap, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	start := time.Now()
	defer func() {
		metrics.RecordCacheOperationLatency(StoreRedis, "save", float64(time.Since(start).Microseconds())/1000)
	}()

	ttl := snap.ExpiresAt.Sub(snap.FetchedAt)
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	raw, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	// zero means no redis expiry
	var expiry time.Duration
	if s.opts.staleGrace > 0 {
		expiry = ttl + s.opts.staleGrace
	}
	if err := s.client.Set(ctx, s.opts.key, raw, expiry).Err(); err != nil {
		metrics.RecordErrorByComponent("repository", "redis_set")
		return fmt.Errorf("redis set %s: %w", s.opts.key, err)
	}
	metrics.UpdateCachePayloadSize(len(snap.Payload))
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func encodeSnapshot(snap Snapshot) ([]byte, error) {
	raw, err := sonic.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return raw, nil
}

func decodeSnapshot(raw []byte) (Snapshot, error) {
	var snap Snapshot
	if err := sonic.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
