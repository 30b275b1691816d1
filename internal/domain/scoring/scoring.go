// Package scoring combines a record's normalized stats into one overall score.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/squadmetrics/internal/domain/model"
)

// Policy names accepted by FromConfig.
const (
	PolicyRoleWeighted = "role-weighted"
	PolicyFixedMean    = "fixed-mean"
)

// Policy computes a composite score from one normalized record.
// Implementations are pure and safe for concurrent use.
type Policy interface {
	// Score returns the overall score, Missing when it cannot be computed.
	Score(rec model.NormalizedRecord) model.Value
	// Name identifies the policy.
	Name() string
}

// StatWeight pairs a stat with its weight within a role.
type StatWeight struct {
	Stat   string
	Weight float64
}

// RoleWeighted scores a record as the weighted mean of the stats its role
// cares about.
type RoleWeighted struct {
	roles map[string][]StatWeight
}

// Option applies a configuration option to the RoleWeighted policy.
type Option func(*RoleWeighted)

// WithRole adds or replaces the weight set of a role.
// Non-positive weights are dropped.
func WithRole(role string, weights map[string]float64) Option {
	return func(p *RoleWeighted) {
		set := make([]StatWeight, 0, len(weights))
		for stat, w := range weights {
			if w > 0 {
				set = append(set, StatWeight{Stat: stat, Weight: w})
			}
		}
		// Fixed summation order keeps results bit-identical between runs.
		sort.Slice(set, func(i, j int) bool { return set[i].Stat < set[j].Stat })
		p.roles[roleKey(role)] = set
	}
}

// WithRoleWeightsFromConfig sets the weight sets of every role.
func WithRoleWeightsFromConfig(roles map[string]map[string]float64) Option {
	return func(p *RoleWeighted) {
		for role, weights := range roles {
			WithRole(role, weights)(p)
		}
	}
}

// NewRoleWeighted creates a role-weighted policy.
func NewRoleWeighted(opts ...Option) *RoleWeighted {
	p := &RoleWeighted{roles: make(map[string][]StatWeight)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Policy.
func (p *RoleWeighted) Name() string { return PolicyRoleWeighted }

// Weights returns the weight set of a role and whether the role is known.
func (p *RoleWeighted) Weights(role string) ([]StatWeight, bool) {
	set, ok := p.roles[roleKey(role)]
	return set, ok
}

// Score implements Policy.
func (p *RoleWeighted) Score(rec model.NormalizedRecord) model.Value {
	set, ok := p.Weights(rec.Role)
	if !ok {
		return model.Missing()
	}
	var total, wsum float64
	for _, sw := range set {
		v, present := rec.Stat(sw.Stat).Get()
		if !present {
			continue
		}
		total += v * sw.Weight
		wsum += sw.Weight
	}
	if wsum == 0 {
		return model.Missing()
	}
	return model.Some(total / wsum)
}

// FixedMean scores a record as the plain mean of a fixed stat list,
// independent of role.
type FixedMean struct {
	stats []string
}

// NewFixedMean creates a fixed-set mean policy. Duplicate stats count once.
func NewFixedMean(stats []string) *FixedMean {
	seen := make(map[string]struct{}, len(stats))
	out := make([]string, 0, len(stats))
	for _, s := range stats {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return &FixedMean{stats: out}
}

// Name implements Policy.
func (p *FixedMean) Name() string { return PolicyFixedMean }

// Stats returns the stat list in evaluation order.
func (p *FixedMean) Stats() []string {
	return append([]string(nil), p.stats...)
}

// Score implements Policy.
func (p *FixedMean) Score(rec model.NormalizedRecord) model.Value {
	values := make([]model.Value, len(p.stats))
	for i, s := range p.stats {
		values[i] = rec.Stat(s)
	}
	return model.Mean(values)
}

// FromConfig builds the policy selected by name.
func FromConfig(name string, roles map[string]map[string]float64, fixed []string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PolicyRoleWeighted:
		return NewRoleWeighted(WithRoleWeightsFromConfig(roles)), nil
	case PolicyFixedMean:
		return NewFixedMean(fixed), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

func roleKey(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
