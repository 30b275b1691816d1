package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	EnvPrefix     = "SQUADMETRICS_"
	EnvConfigFile = "SQUADMETRICS_CONFIG"
)

// keyDelim separates nested config keys. Stat names used as map keys under
// scoring.calibration and scoring.role_weights may contain dots ("Avg. ACS").
const keyDelim = "::"

// Scoring keys whose defaults are replaced, not merged, when a layer sets them.
var replaceKeys = []string{ //nolint:gochecknoglobals // fixed lookup table
	"stats",
	"excluded_columns",
	"calibration",
	"role_weights",
	"fixed_stats",
	"tiers",
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SQUADMETRICS_CONFIG is set
//  3. env (prefix SQUADMETRICS_, "__" separates nested keys)
func Load(ctx context.Context) (*Config, error) {
	_ = ctx
	base := New()

	k := koanf.New(keyDelim)

	// Load from file if provided
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// Environment variables: SQUADMETRICS_ADDR, SQUADMETRICS_CACHE__TTL_MS, ...
	// Single underscores are kept to match koanf tags on the struct.
	envProvider := env.Provider(EnvPrefix, keyDelim, func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", keyDelim)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	for _, key := range replaceKeys {
		if k.Exists("scoring" + keyDelim + key) {
			clearDefault(&cfg.Scoring, key)
		}
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func clearDefault(s *ScoringConfig, key string) {
	switch key {
	case "stats":
		s.Stats = nil
	case "excluded_columns":
		s.ExcludedColumns = nil
	case "calibration":
		s.Calibration = nil
	case "role_weights":
		s.RoleWeights = nil
	case "fixed_stats":
		s.FixedStats = nil
	case "tiers":
		s.Tiers = nil
	}
}
