// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/okian/squadmetrics/internal/adapters/repository"
	"github.com/okian/squadmetrics/internal/adapters/source"
	"github.com/okian/squadmetrics/internal/domain/pipeline"
	"github.com/okian/squadmetrics/internal/domain/types"
	"github.com/okian/squadmetrics/pkg/logger"
	"github.com/okian/squadmetrics/pkg/metrics"
)

const (
	defaultCacheTTL = 20 * time.Second
	fetchKey        = "snapshot"
)

// Service turns the cached stat sheet into the evaluated dashboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	source    source.Source
	store     repository.Store
	engine    *pipeline.Engine
	parseOpts []source.ParseOption
	fetches   singleflight.Group

	// Configuration
	cacheTTL        time.Duration
	refreshInterval time.Duration
	now             func() time.Time

	// State
	view       *pipeline.View
	viewID     uuid.UUID
	fetchedAt  time.Time
	lastErr    error
	evaluated  int
	started    bool
	stopCh     chan struct{}
	refreshers sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSource sets where the raw stat sheet comes from.
func WithSource(src source.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithStore sets the snapshot cache.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithEngine sets the scoring pipeline.
func WithEngine(e *pipeline.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithCacheTTL sets how long a fetched snapshot stays fresh.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithRefreshInterval enables the background refresher. Zero disables it.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithParseOptions sets the options used to parse every snapshot.
func WithParseOptions(opts ...source.ParseOption) Option {
	return func(s *Service) {
		s.parseOpts = append(s.parseOpts, opts...)
	}
}

// WithClock sets the clock used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		store:    repository.NewMemoryStore(),
		engine:   pipeline.New(),
		cacheTTL: defaultCacheTTL,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}

	return s
}

// Start launches the background refresher when one is configured.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.source == nil {
		return ErrNoSource
	}

	s.logger.Info(ctx, "starting squad metrics service...",
		logger.String("source", s.source.Kind()),
		logger.String("store", s.store.Name()),
		logger.Duration("cacheTTL", s.cacheTTL),
		logger.Duration("refreshInterval", s.refreshInterval),
	)

	if s.refreshInterval > 0 {
		s.refreshers.Add(1)
		go s.refreshLoop(ctx, s.stopCh)
	}

	s.started = true
	s.logger.Info(ctx, "squad metrics service started")
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.logger.Info(context.Background(), "stopping squad metrics service...")
	close(s.stopCh)
	s.started = false
	s.mu.Unlock()

	// The refresher takes the lock itself, so wait outside it.
	s.refreshers.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCh = make(chan struct{})
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing snapshot store", logger.Error(err))
	}
	s.logger.Info(context.Background(), "squad metrics service stopped")
}

func (s *Service) refreshLoop(ctx context.Context, stop <-chan struct{}) {
	defer s.refreshers.Done()

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	if _, err := s.View(ctx); err != nil {
		s.logger.Warn(ctx, "initial snapshot load failed", logger.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Warn(ctx, "background refresh failed", logger.Error(err))
			}
		}
	}
}

// View returns the evaluated dashboard for the current snapshot. A fresh
// cached snapshot is reused; otherwise the sheet is fetched once for all
// concurrent callers. When the fetch fails an expired snapshot is served.
func (s *Service) View(ctx context.Context) (*pipeline.View, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		s.setErr(err)
		return nil, err
	}
	v, err := s.evaluate(ctx, snap)
	s.setErr(err)
	return v, err
}

// Refresh fetches the sheet regardless of the cache and re-evaluates it.
func (s *Service) Refresh(ctx context.Context) error {
	snap, err := s.fetch(ctx)
	if err != nil {
		s.setErr(err)
		return err
	}
	_, err = s.evaluate(ctx, snap)
	s.setErr(err)
	return err
}

func (s *Service) snapshot(ctx context.Context) (repository.Snapshot, error) {
	cached, err := s.store.Load(ctx)
	switch {
	case err == nil:
		return cached, nil
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrExpired):
	default:
		metrics.RecordErrorByComponent("cache", "load")
		s.logger.Warn(ctx, "snapshot cache unavailable, fetching directly",
			logger.String("store", s.store.Name()),
			logger.Error(err),
		)
	}

	fresh, ferr := s.fetch(ctx)
	if ferr == nil {
		return fresh, nil
	}
	if errors.Is(err, repository.ErrExpired) && len(cached.Payload) > 0 {
		s.logger.Warn(ctx, "serving stale snapshot",
			logger.String("snapshot", cached.ID.String()),
			logger.Duration("age", cached.Age(s.now())),
			logger.Error(ferr),
		)
		return cached, nil
	}
	return repository.Snapshot{}, ferr
}

// fetch pulls the sheet and caches it. Concurrent callers share one fetch,
// which outlives the cancellation of whichever caller started it and is
// bounded by the source's own timeouts.
func (s *Service) fetch(ctx context.Context) (repository.Snapshot, error) {
	if s.source == nil {
		return repository.Snapshot{}, ErrNoSource
	}
	fetchCtx := context.WithoutCancel(ctx)
	v, err, shared := s.fetches.Do(fetchKey, func() (interface{}, error) {
		kind := s.source.Kind()
		start := time.Now()
		payload, err := s.source.Fetch(fetchCtx)
		metrics.RecordSnapshotFetchDuration(kind, float64(time.Since(start).Microseconds())/1000)
		if err != nil {
			metrics.RecordSnapshotFetch(kind, "error")
			metrics.RecordErrorByComponent("source", "fetch")
			return nil, fmt.Errorf("%w: %w", ErrFetch, err)
		}
		metrics.RecordSnapshotFetch(kind, "ok")

		snap := repository.NewSnapshot(payload, kind, s.now(), s.cacheTTL)
		if err := s.store.Save(fetchCtx, snap); err != nil {
			metrics.RecordErrorByComponent("cache", "save")
			s.logger.Warn(fetchCtx, "caching snapshot failed",
				logger.String("store", s.store.Name()),
				logger.Error(err),
			)
		}
		metrics.UpdateSnapshotLastFetch(snap.FetchedAt)
		s.logger.Debug(fetchCtx, "fetched stat sheet",
			logger.String("snapshot", snap.ID.String()),
			logger.Int("bytes", len(payload)),
		)
		return snap, nil
	})
	if err != nil {
		return repository.Snapshot{}, err
	}
	if shared {
		s.logger.Debug(ctx, "joined in-flight fetch")
	}
	return v.(repository.Snapshot), nil
}

// evaluate parses and scores a snapshot, reusing the previous result when
// the snapshot has not changed.
func (s *Service) evaluate(ctx context.Context, snap repository.Snapshot) (*pipeline.View, error) {
	s.mu.RLock()
	if s.view != nil && s.viewID == snap.ID {
		v := s.view
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	table, err := source.Parse(bytes.NewReader(snap.Payload), s.parseOpts...)
	if errors.Is(err, source.ErrNoHeader) {
		return nil, ErrEmptySnapshot
	}
	if err != nil {
		metrics.RecordErrorByComponent("source", "parse")
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if table.Empty() {
		return nil, ErrEmptySnapshot
	}

	start := time.Now()
	v := s.engine.Evaluate(table)
	metrics.RecordEvaluation(float64(time.Since(start).Microseconds()) / 1000)
	metrics.UpdateSnapshotSize(len(table.Records), len(table.Players()))
	metrics.UpdateMissingOverall(v.MissingOverall)
	metrics.UpdateRankedPlayers(len(v.Ranking))

	s.mu.Lock()
	s.view = v
	s.viewID = snap.ID
	s.fetchedAt = snap.FetchedAt
	s.evaluated++
	s.mu.Unlock()

	s.logger.Info(ctx, "evaluated stat sheet",
		logger.String("snapshot", snap.ID.String()),
		logger.Int("records", len(table.Records)),
		logger.Int("players", len(v.Ranking)),
		logger.Int("missingOverall", v.MissingOverall),
	)
	return v, nil
}

func (s *Service) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// Leaderboard returns the ranked team. A positive limit keeps the top entries.
func (s *Service) Leaderboard(ctx context.Context, limit int) (types.Leaderboard, error) {
	v, err := s.View(ctx)
	if err != nil {
		return types.Leaderboard{}, err
	}
	return types.NewLeaderboard(v, limit), nil
}

// Player returns the full report of one player.
func (s *Service) Player(ctx context.Context, id string) (types.Player, error) {
	report, err := s.report(ctx, id)
	if err != nil {
		return types.Player{}, err
	}
	return types.NewPlayer(report), nil
}

// Trend returns a player's overall score series.
func (s *Service) Trend(ctx context.Context, id string) (types.Trend, error) {
	report, err := s.report(ctx, id)
	if err != nil {
		return types.Trend{}, err
	}
	return types.NewTrend(report), nil
}

func (s *Service) report(ctx context.Context, id string) (pipeline.PlayerReport, error) {
	v, err := s.View(ctx)
	if err != nil {
		return pipeline.PlayerReport{}, err
	}
	report, ok := v.Player(strings.TrimSpace(id))
	if !ok {
		return pipeline.PlayerReport{}, fmt.Errorf("%w: %q", ErrPlayerNotFound, id)
	}
	return report, nil
}

// Players lists the evaluated player ids in ascending order.
func (s *Service) Players(ctx context.Context) ([]string, error) {
	v, err := s.View(ctx)
	if err != nil {
		return nil, err
	}
	return v.PlayerIDs(), nil
}

// ImpactShares returns every player's share of the team total.
func (s *Service) ImpactShares(ctx context.Context) ([]types.Share, error) {
	v, err := s.View(ctx)
	if err != nil {
		return nil, err
	}
	return types.NewShares(v), nil
}

// Records returns the normalized sheet rows.
func (s *Service) Records(ctx context.Context) ([]types.Record, error) {
	v, err := s.View(ctx)
	if err != nil {
		return nil, err
	}
	return types.NewRecords(v), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"store":           s.store.Name(),
		"policy":          s.engine.Policy().Name(),
		"cacheTTL":        s.cacheTTL.String(),
		"refreshInterval": s.refreshInterval.String(),
		"evaluations":     s.evaluated,
	}
	if s.source != nil {
		stats["source"] = s.source.Kind()
	}
	if s.view != nil {
		stats["snapshot"] = s.viewID.String()
		stats["fetchedAt"] = s.fetchedAt.UTC().Format(time.RFC3339)
		stats["players"] = len(s.view.Ranking)
		stats["records"] = len(s.view.Normalized)
		stats["missingOverall"] = s.view.MissingOverall
	}
	if s.lastErr != nil {
		stats["lastError"] = s.lastErr.Error()
	}
	return stats
}
