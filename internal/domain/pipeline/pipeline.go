// Package pipeline composes normalization, scoring, aggregation and ranking
// into the operations consumed by the presentation layer.
package pipeline

import (
	"sort"

	"github.com/okian/squadmetrics/internal/domain/aggregate"
	"github.com/okian/squadmetrics/internal/domain/model"
	"github.com/okian/squadmetrics/internal/domain/normalize"
	"github.com/okian/squadmetrics/internal/domain/ranking"
	"github.com/okian/squadmetrics/internal/domain/scoring"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithNormalizer sets the stat normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(e *Engine) {
		if n != nil {
			e.normalizer = n
		}
	}
}

// WithPolicy sets the composite scoring policy.
func WithPolicy(p scoring.Policy) Option {
	return func(e *Engine) {
		if p != nil {
			e.policy = p
		}
	}
}

// WithAggregator sets the temporal aggregator.
func WithAggregator(a *aggregate.Aggregator) Option {
	return func(e *Engine) {
		if a != nil {
			e.aggregator = a
		}
	}
}

// WithRanker sets the team ranker.
func WithRanker(r *ranking.Ranker) Option {
	return func(e *Engine) {
		if r != nil {
			e.ranker = r
		}
	}
}

// Engine is immutable after construction and safe for concurrent use.
type Engine struct {
	normalizer *normalize.Normalizer
	policy     scoring.Policy
	aggregator *aggregate.Aggregator
	ranker     *ranking.Ranker
}

// New creates an Engine. Without options it normalizes by column max,
// scores by role weights (no roles configured) and uses default windows.
func New(opts ...Option) *Engine {
	e := &Engine{
		normalizer: normalize.New(),
		policy:     scoring.NewRoleWeighted(),
		aggregator: aggregate.New(),
		ranker:     ranking.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the scoring policy in use.
func (e *Engine) Policy() scoring.Policy { return e.policy }

// NormalizeTable rescales every skill stat and fills in each record's overall.
func (e *Engine) NormalizeTable(t model.Table) []model.NormalizedRecord {
	out := e.normalizer.NormalizeTable(t)
	for i := range out {
		out[i].Overall = e.policy.Score(out[i])
	}
	return out
}

// Score computes the composite score of one normalized record.
func (e *Engine) Score(rec model.NormalizedRecord) model.Value {
	return e.policy.Score(rec)
}

// Aggregate summarizes one player's history.
func (e *Engine) Aggregate(history []model.NormalizedRecord) aggregate.PlayerAggregate {
	return e.aggregator.Aggregate(history)
}

// RankTeam ranks every player found in the records.
func (e *Engine) RankTeam(all []model.NormalizedRecord) []ranking.Entry {
	return e.ranker.RankTeam(all)
}

// PlayerReport is everything the dashboard shows for one player.
type PlayerReport struct {
	aggregate.PlayerAggregate
	Role   string
	Rank   int
	Tier   string
	Score  model.Value // team-ranking aggregate
	Share  model.Value
	VsTeam model.Value // latest overall minus team average
}

// View is the fully evaluated dashboard for one table snapshot.
type View struct {
	Stats []string
	// Columns lists every numeric column, skill stat or not.
	Columns     []string
	Raw         []model.Record
	Normalized  []model.NormalizedRecord
	Ranking     []ranking.Entry
	Players     map[string]PlayerReport
	TeamAverage model.Value
	// MissingOverall counts records whose overall could not be computed.
	MissingOverall int
}

// Evaluate runs the whole pipeline over a table.
func (e *Engine) Evaluate(t model.Table) *View {
	normalized := e.NormalizeTable(t)
	entries := e.RankTeam(normalized)
	teamAvg := ranking.TeamAverage(entries)

	v := &View{
		Stats:       append([]string(nil), t.Stats...),
		Columns:     append([]string(nil), t.Columns...),
		Raw:         t.Records,
		Normalized:  normalized,
		Ranking:     entries,
		Players:     make(map[string]PlayerReport, len(entries)),
		TeamAverage: teamAvg,
	}
	for _, r := range normalized {
		if r.Overall.IsMissing() {
			v.MissingOverall++
		}
	}

	aggregator := e.aggregator.InOrder(t.Stats)
	groups := model.GroupByPlayer(normalized)
	for _, entry := range entries {
		history := groups[entry.Player]
		agg := aggregator.Aggregate(history)
		v.Players[entry.Player] = PlayerReport{
			PlayerAggregate: agg,
			Role:            latestRole(history),
			Rank:            entry.Rank,
			Tier:            entry.Tier,
			Score:           entry.Score,
			Share:           entry.Share,
			VsTeam:          agg.Latest.Sub(teamAvg),
		}
	}
	return v
}

// Player returns the report for a player.
func (v *View) Player(id string) (PlayerReport, bool) {
	p, ok := v.Players[id]
	return p, ok
}

// PlayerIDs returns the evaluated players in ascending order.
func (v *View) PlayerIDs() []string {
	out := make([]string, 0, len(v.Players))
	for id := range v.Players {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// latestRole is the role of the most recent dated record, falling back to
// the last non-empty role in sheet order.
func latestRole(history []model.NormalizedRecord) string {
	dated := model.Chronological(history)
	for i := len(dated) - 1; i >= 0; i-- {
		if dated[i].Role != "" {
			return dated[i].Role
		}
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != "" {
			return history[i].Role
		}
	}
	return ""
}
