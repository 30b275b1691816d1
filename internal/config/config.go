// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading layers defaults, an optional YAML file and env vars (see Load).
// - External errors are wrapped with this package's sentinel errors.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit" validate:"gte=1"`

	Source  SourceConfig  `koanf:"source"`
	Cache   CacheConfig   `koanf:"cache"`
	Scoring ScoringConfig `koanf:"scoring"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// MetricsConfig controls Prometheus recording.
type MetricsConfig struct {
	// Enabled turns metric recording on. /metrics is served either way.
	Enabled bool `koanf:"enabled"`
	// RefreshIntervalMS is how often the runtime gauges are sampled.
	RefreshIntervalMS int `koanf:"refresh_interval_ms" validate:"gt=0"`
}

// SourceConfig locates the raw stat sheet.
type SourceConfig struct {
	// Kind is "file" or "http".
	Kind string `koanf:"kind" validate:"oneof=file http"`
	// Path of the CSV file when Kind is "file".
	Path string `koanf:"path" validate:"required_if=Kind file"`
	// URL of the CSV export when Kind is "http".
	URL string `koanf:"url" validate:"required_if=Kind http"`

	TimeoutMS       int `koanf:"timeout_ms" validate:"gt=0"`
	MaxTries        int `koanf:"max_tries" validate:"gte=1"`
	RetryIntervalMS int `koanf:"retry_interval_ms" validate:"gt=0"`
}

// CacheConfig configures the time-boxed snapshot cache.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend string `koanf:"backend" validate:"oneof=memory redis"`
	// TTLMS is how long a fetched sheet is served before refetching.
	TTLMS int `koanf:"ttl_ms" validate:"gt=0"`
	// RefreshIntervalMS enables background refresh when positive.
	RefreshIntervalMS int `koanf:"refresh_interval_ms" validate:"gte=0"`
	// StaleGraceMS keeps redis entries past their TTL so a stale sheet can
	// be served when a refetch fails. Zero keeps them until overwritten.
	StaleGraceMS int `koanf:"stale_grace_ms" validate:"gte=0"`

	RedisAddr     string `koanf:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db" validate:"gte=0"`
	RedisKey      string `koanf:"redis_key"`
}

// CalibrationConfig is the calibration of one stat.
type CalibrationConfig struct {
	// Mode is pass-through, fixed, dynamic-max or none.
	Mode string  `koanf:"mode"`
	Low  float64 `koanf:"low"`
	High float64 `koanf:"high"`
}

// TierConfig is one rung of the tier ladder.
type TierConfig struct {
	Threshold float64 `koanf:"threshold"`
	Label     string  `koanf:"label" validate:"required"`
}

// ImpactWeightsConfig blends career, form and consistency into impact.
type ImpactWeightsConfig struct {
	Career      float64 `koanf:"career" validate:"gte=0"`
	Form        float64 `koanf:"form" validate:"gte=0"`
	Consistency float64 `koanf:"consistency" validate:"gte=0"`
}

// ScoringConfig holds every option of the metrics pipeline.
type ScoringConfig struct {
	// ScaleMax is S, the top of the common scale.
	ScaleMax float64 `koanf:"scale_max" validate:"gt=0"`

	// Stats lists the skill stats in declaration order. Empty means every
	// numeric column not in ExcludedColumns.
	Stats           []string `koanf:"stats"`
	ExcludedColumns []string `koanf:"excluded_columns"`

	// DefaultCalibration applies to stats missing from Calibration.
	DefaultCalibration string                       `koanf:"default_calibration"`
	Calibration        map[string]CalibrationConfig `koanf:"calibration" validate:"dive"`

	// Policy is role-weighted or fixed-mean.
	Policy      string                        `koanf:"policy" validate:"oneof=role-weighted fixed-mean"`
	RoleWeights map[string]map[string]float64 `koanf:"role_weights"`
	FixedStats  []string                      `koanf:"fixed_stats"`

	FormWindow             int                 `koanf:"form_window" validate:"gte=1"`
	ConsistencyWindow      int                 `koanf:"consistency_window" validate:"gte=2"`
	ConsistencySensitivity float64             `koanf:"consistency_sensitivity" validate:"gte=0"`
	ImpactWeights          ImpactWeightsConfig `koanf:"impact_weights"`

	Tiers       []TierConfig `koanf:"tiers" validate:"dive"`
	DefaultTier string       `koanf:"default_tier"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		MaxLeaderboardLimit: 100,
		Source: SourceConfig{
			Kind:            "file",
			Path:            "stats.csv",
			TimeoutMS:       20_000,
			MaxTries:        4,
			RetryIntervalMS: 500,
		},
		Cache: CacheConfig{
			Backend:           "memory",
			TTLMS:             20_000,
			RefreshIntervalMS: 0,
			StaleGraceMS:      3_600_000,
			RedisKey:          "squadmetrics:snapshot",
		},
		Metrics: MetricsConfig{
			Enabled:           true,
			RefreshIntervalMS: 10_000,
		},
		Scoring: ScoringConfig{
			ScaleMax:               100,
			ExcludedColumns:        []string{"Exam scores", "Overall Performance"},
			DefaultCalibration:     "dynamic-max",
			Calibration:            map[string]CalibrationConfig{},
			Policy:                 "role-weighted",
			RoleWeights:            defaultRoleWeights(),
			FixedStats:             []string{"Aim", "HS%", "ACS", "Entry", "Clutch", "Utility", "Comms"},
			FormWindow:             3,
			ConsistencyWindow:      5,
			ConsistencySensitivity: 1.0,
			ImpactWeights: ImpactWeightsConfig{
				Career:      0.6,
				Form:        0.25,
				Consistency: 0.15,
			},
			Tiers: []TierConfig{
				{Threshold: 75, Label: "B"},
				{Threshold: 85, Label: "A"},
				{Threshold: 95, Label: "S"},
			},
			DefaultTier: "C",
		},
	}
}

func defaultRoleWeights() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"Duelist":    {"Aim": 25, "Entry": 25, "ACS": 20, "Clutch": 15, "HS%": 10, "Utility": 5},
		"Controller": {"Utility": 25, "Comms": 20, "Clutch": 15, "ACS": 15, "Aim": 10, "Entry": 5, "HS%": 10},
		"Initiator":  {"Utility": 25, "Comms": 15, "ACS": 20, "Entry": 15, "Aim": 10, "Clutch": 10, "HS%": 5},
		"Sentinel":   {"Clutch": 25, "Utility": 20, "Comms": 15, "ACS": 15, "Aim": 10, "HS%": 10, "Entry": 5},
		"IGL":        {"Comms": 35, "Utility": 20, "Clutch": 15, "ACS": 10},
	}
}
