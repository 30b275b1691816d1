// Package ranking orders players by their mean overall score and assigns tiers.
package ranking

import (
	"sort"

	"github.com/okian/squadmetrics/internal/domain/model"
)

// sharePercent converts a share ratio into a percentage.
const sharePercent = 100

// Entry is one row of the team ranking.
type Entry struct {
	Rank    int
	Player  string
	Score   model.Value
	Tier    string
	Share   model.Value
	Records int
}

// Option applies a configuration option to the Ranker.
type Option func(*Ranker)

// WithLadder sets the tier ladder.
func WithLadder(l Ladder) Option {
	return func(r *Ranker) {
		r.ladder = l
	}
}

// Ranker builds team rankings. It holds configuration only.
type Ranker struct {
	ladder Ladder
}

// New creates a Ranker using the default ladder unless overridden.
func New(opts ...Option) *Ranker {
	r := &Ranker{ladder: NewLadder(DefaultTiers(), DefaultTierLabel)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ladder returns the tier ladder.
func (r *Ranker) Ladder() Ladder { return r.ladder }

// RankTeam aggregates each player's overall by unweighted mean over all of
// their records and returns the team in rank order.
//
// Ordering: score DESC, then player ASC. Missing scores sort last.
// Ranks are positional: equal scores still get consecutive ranks.
func (r *Ranker) RankTeam(all []model.NormalizedRecord) []Entry {
	groups := model.GroupByPlayer(all)
	entries := make([]Entry, 0, len(groups))
	for player, recs := range groups {
		scores := make([]model.Value, len(recs))
		for i, rec := range recs {
			scores[i] = rec.Overall
		}
		entries = append(entries, Entry{Player: player, Score: model.Mean(scores), Records: len(recs)})
	}

	sortEntries(entries)
	assignShares(entries)
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Tier = r.ladder.Assign(entries[i].Score)
	}
	return entries
}

// TeamAverage is the mean of the players' aggregate scores.
func TeamAverage(entries []Entry) model.Value {
	scores := make([]model.Value, len(entries))
	for i, e := range entries {
		scores[i] = e.Score
	}
	return model.Mean(scores)
}

// sortEntries sorts entries by score (descending) and player (ascending).
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, aok := entries[i].Score.Get()
		b, bok := entries[j].Score.Get()
		if aok != bok {
			return aok // present scores rank before missing ones
		}
		if aok && a != b {
			return a > b
		}
		return entries[i].Player < entries[j].Player
	})
}

// assignShares sets each player's share of the summed aggregates. A zero
// total leaves every share Missing.
func assignShares(entries []Entry) {
	var total float64
	for _, e := range entries {
		total += e.Score.Or(0)
	}
	for i := range entries {
		s, ok := entries[i].Score.Get()
		if !ok || total == 0 {
			entries[i].Share = model.Missing()
			continue
		}
		entries[i].Share = model.Some(s / total * sharePercent)
	}
}
