package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"

	"github.com/go-playground/validator/v10"

	"github.com/okian/squadmetrics/internal/domain/normalize"
	"github.com/okian/squadmetrics/internal/domain/scoring"
)

const weightSumTolerance = 1e-6

var validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals // validator caches struct metadata

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalidConfig, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.Source.Kind == "http" {
		u, err := url.Parse(c.Source.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: source.url %q is not an absolute URL", ErrInvalidConfig, c.Source.URL)
		}
	}
	return c.Scoring.validate()
}

func (s *ScoringConfig) validate() error {
	if _, err := normalize.ParseMode(s.DefaultCalibration); err != nil {
		return fmt.Errorf("%w: scoring.default_calibration: %w", ErrInvalidConfig, err)
	}
	for stat, cc := range s.Calibration {
		c, err := cc.calibration()
		if err != nil {
			return fmt.Errorf("%w: scoring.calibration.%s: %w", ErrInvalidConfig, stat, err)
		}
		if c.Mode == normalize.ModeFixed && c.High <= c.Low {
			return fmt.Errorf("%w: scoring.calibration.%s: high must exceed low", ErrInvalidConfig, stat)
		}
	}

	if _, err := scoring.FromConfig(s.Policy, s.RoleWeights, s.FixedStats); err != nil {
		return fmt.Errorf("%w: scoring.policy: %w", ErrInvalidConfig, err)
	}
	switch s.Policy {
	case scoring.PolicyRoleWeighted:
		if len(s.RoleWeights) == 0 {
			return fmt.Errorf("%w: scoring.role_weights must not be empty", ErrInvalidConfig)
		}
		for role, weights := range s.RoleWeights {
			for stat, w := range weights {
				if w < 0 || math.IsNaN(w) {
					return fmt.Errorf("%w: scoring.role_weights.%s.%s must not be negative", ErrInvalidConfig, role, stat)
				}
			}
		}
	case scoring.PolicyFixedMean:
		if len(s.FixedStats) == 0 {
			return fmt.Errorf("%w: scoring.fixed_stats must not be empty", ErrInvalidConfig)
		}
	}

	w := s.ImpactWeights
	if math.Abs(w.Career+w.Form+w.Consistency-1) > weightSumTolerance {
		return fmt.Errorf("%w: scoring.impact_weights must sum to 1", ErrInvalidConfig)
	}
	return nil
}

func (cc CalibrationConfig) calibration() (normalize.Calibration, error) {
	mode, err := normalize.ParseMode(cc.Mode)
	if err != nil {
		return normalize.Calibration{}, err
	}
	return normalize.Calibration{Mode: mode, Low: cc.Low, High: cc.High}, nil
}
