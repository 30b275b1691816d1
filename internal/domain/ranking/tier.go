package ranking

import (
	"sort"

	"github.com/okian/squadmetrics/internal/domain/model"
)

// DefaultTierLabel is assigned below the lowest threshold.
const DefaultTierLabel = "C"

// Tier is one rung of the ladder: scores >= Threshold get Label.
type Tier struct {
	Threshold float64
	Label     string
}

// DefaultTiers is the S/A/B ladder on a 0-100 scale.
func DefaultTiers() []Tier {
	return []Tier{{Threshold: 75, Label: "B"}, {Threshold: 85, Label: "A"}, {Threshold: 95, Label: "S"}}
}

// Ladder assigns tier labels from thresholds.
type Ladder struct {
	tiers    []Tier // descending by threshold
	fallback string
}

// NewLadder builds a ladder from tiers in any order.
func NewLadder(tiers []Tier, fallback string) Ladder {
	sorted := append([]Tier(nil), tiers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Threshold > sorted[j].Threshold
	})
	return Ladder{tiers: sorted, fallback: fallback}
}

// Assign returns the label of the highest threshold the score reaches.
// Missing scores get no tier.
func (l Ladder) Assign(score model.Value) string {
	s, ok := score.Get()
	if !ok {
		return ""
	}
	for _, t := range l.tiers {
		if s >= t.Threshold {
			return t.Label
		}
	}
	return l.fallback
}
