package config

import (
	"fmt"

	"github.com/okian/squadmetrics/internal/domain/aggregate"
	"github.com/okian/squadmetrics/internal/domain/normalize"
	"github.com/okian/squadmetrics/internal/domain/pipeline"
	"github.com/okian/squadmetrics/internal/domain/ranking"
	"github.com/okian/squadmetrics/internal/domain/scoring"
)

// Engine builds the metrics pipeline described by the scoring section.
func (s ScoringConfig) Engine() (*pipeline.Engine, error) {
	def, err := normalize.ParseMode(s.DefaultCalibration)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cals := make(map[string]normalize.Calibration, len(s.Calibration))
	for stat, cc := range s.Calibration {
		c, err := cc.calibration()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, stat, err)
		}
		cals[stat] = c
	}

	policy, err := scoring.FromConfig(s.Policy, s.RoleWeights, s.FixedStats)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	tiers := make([]ranking.Tier, len(s.Tiers))
	for i, t := range s.Tiers {
		tiers[i] = ranking.Tier{Threshold: t.Threshold, Label: t.Label}
	}

	return pipeline.New(
		pipeline.WithNormalizer(normalize.New(
			normalize.WithScale(s.ScaleMax),
			normalize.WithCalibrations(cals),
			normalize.WithDefault(normalize.Calibration{Mode: def}),
		)),
		pipeline.WithPolicy(policy),
		pipeline.WithAggregator(aggregate.New(
			aggregate.WithFormWindow(s.FormWindow),
			aggregate.WithConsistencyWindow(s.ConsistencyWindow),
			aggregate.WithSensitivity(s.ConsistencySensitivity),
			aggregate.WithCeiling(s.ScaleMax),
			aggregate.WithImpactWeights(aggregate.ImpactWeights{
				Career:      s.ImpactWeights.Career,
				Form:        s.ImpactWeights.Form,
				Consistency: s.ImpactWeights.Consistency,
			}),
			aggregate.WithStatOrder(s.Stats),
		)),
		pipeline.WithRanker(ranking.New(
			ranking.WithLadder(ranking.NewLadder(tiers, s.DefaultTier)),
		)),
	), nil
}
