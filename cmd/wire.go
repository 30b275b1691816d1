package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/squadmetrics/internal/adapters/repository"
	"github.com/okian/squadmetrics/internal/adapters/source"
	app "github.com/okian/squadmetrics/internal/app"
	"github.com/okian/squadmetrics/internal/config"
	"github.com/okian/squadmetrics/pkg/logger"
	"github.com/okian/squadmetrics/pkg/metrics"
)

const redisPingTimeout = 3 * time.Second

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// newSource builds the stat sheet source named by the config.
func newSource(cfg config.SourceConfig) (source.Source, error) {
	switch cfg.Kind {
	case source.KindFile:
		return source.NewFileSource(cfg.Path)
	case source.KindHTTP:
		return source.NewHTTPSource(cfg.URL,
			source.WithTimeout(ms(cfg.TimeoutMS)),
			source.WithMaxTries(uint(cfg.MaxTries)),
			source.WithInitialInterval(ms(cfg.RetryIntervalMS)),
		)
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// newStore builds the snapshot cache. A redis backend must answer a ping.
func newStore(ctx context.Context, cfg config.CacheConfig) (repository.Store, error) {
	switch cfg.Backend {
	case repository.StoreMemory:
		return repository.NewMemoryStore(), nil
	case repository.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := repository.NewRedisStore(client,
			repository.WithKey(cfg.RedisKey),
			repository.WithStaleGrace(ms(cfg.StaleGraceMS)),
		)
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// newService wires source, cache and scoring pipeline into the service.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	src, err := newSource(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	store, err := newStore(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	engine, err := cfg.Scoring.Engine()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("scoring: %w", err)
	}

	return app.New(
		app.WithLogger(log),
		app.WithSource(src),
		app.WithStore(store),
		app.WithEngine(engine),
		app.WithCacheTTL(ms(cfg.Cache.TTLMS)),
		app.WithRefreshInterval(ms(cfg.Cache.RefreshIntervalMS)),
		app.WithParseOptions(
			source.WithExcluded(cfg.Scoring.ExcludedColumns...),
			source.WithStats(cfg.Scoring.Stats...),
		),
	), nil
}

// configureMetrics applies the metrics section to the global recorder.
func configureMetrics(cfg config.MetricsConfig) {
	metrics.Configure(
		metrics.WithMetricsEnabled(cfg.Enabled),
		metrics.WithRefreshInterval(ms(cfg.RefreshIntervalMS)),
	)
}
