// Package types contains the JSON shapes served to the presentation layer
package types

import (
	"time"

	"github.com/okian/squadmetrics/internal/domain/aggregate"
	"github.com/okian/squadmetrics/internal/domain/model"
	"github.com/okian/squadmetrics/internal/domain/pipeline"
)

// Entry represents a leaderboard entry
type Entry struct {
	Rank    int         `json:"rank"`
	Player  string      `json:"player"`
	Score   model.Value `json:"score"`
	Tier    string      `json:"tier,omitempty"`
	Share   model.Value `json:"share"`
	Records int         `json:"records"`
}

// Leaderboard is the ranked team plus its average
type Leaderboard struct {
	TeamAverage model.Value `json:"team_average"`
	Entries     []Entry     `json:"entries"`
}

// Player is the full report for one player
type Player struct {
	Player      string                `json:"player"`
	Role        string                `json:"role,omitempty"`
	Rank        int                   `json:"rank"`
	Tier        string                `json:"tier,omitempty"`
	Score       model.Value           `json:"score"`
	Share       model.Value           `json:"share"`
	Records     int                   `json:"records"`
	Career      model.Value           `json:"career"`
	Form        model.Value           `json:"form"`
	Consistency model.Value           `json:"consistency"`
	Impact      model.Value           `json:"impact"`
	Trend       model.Value           `json:"trend"`
	Latest      model.Value           `json:"latest"`
	VsTeam      model.Value           `json:"vs_team"`
	Best        string                `json:"best,omitempty"`
	Worst       string                `json:"worst,omitempty"`
	Stats       []aggregate.StatValue `json:"stats"`
}

// Trend is a player's overall score over time
type Trend struct {
	Player string            `json:"player"`
	Trend  model.Value       `json:"trend"`
	Points []aggregate.Point `json:"points"`
}

// Share is one slice of the team impact distribution
type Share struct {
	Player string      `json:"player"`
	Share  model.Value `json:"share"`
}

// Record is one normalized sheet row
type Record struct {
	Date    *time.Time             `json:"date"`
	Player  string                 `json:"player"`
	Role    string                 `json:"role,omitempty"`
	Overall model.Value            `json:"overall"`
	Stats   map[string]model.Value `json:"stats"`
	// Extra holds the raw numeric columns that are not skill stats.
	Extra map[string]model.Value `json:"extra,omitempty"`
}

// NewLeaderboard converts the ranking of a view. A positive limit truncates it.
func NewLeaderboard(v *pipeline.View, limit int) Leaderboard {
	entries := v.Ranking
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	out := Leaderboard{TeamAverage: v.TeamAverage, Entries: make([]Entry, len(entries))}
	for i, e := range entries {
		out.Entries[i] = Entry{
			Rank:    e.Rank,
			Player:  e.Player,
			Score:   e.Score,
			Tier:    e.Tier,
			Share:   e.Share,
			Records: e.Records,
		}
	}
	return out
}

// NewPlayer converts a player report.
func NewPlayer(r pipeline.PlayerReport) Player {
	stats := r.LatestStats
	if stats == nil {
		stats = []aggregate.StatValue{}
	}
	return Player{
		Player:      r.Player,
		Role:        r.Role,
		Rank:        r.Rank,
		Tier:        r.Tier,
		Score:       r.Score,
		Share:       r.Share,
		Records:     r.Records,
		Career:      r.Career,
		Form:        r.Form,
		Consistency: r.Consistency,
		Impact:      r.Impact,
		Trend:       r.PlayerAggregate.Trend,
		Latest:      r.Latest,
		VsTeam:      r.VsTeam,
		Best:        r.Best,
		Worst:       r.Worst,
		Stats:       stats,
	}
}

// NewTrend converts the overall series of a player report.
func NewTrend(r pipeline.PlayerReport) Trend {
	points := r.Series
	if points == nil {
		points = []aggregate.Point{}
	}
	return Trend{Player: r.Player, Trend: r.PlayerAggregate.Trend, Points: points}
}

// NewShares lists the impact share of each ranked player.
func NewShares(v *pipeline.View) []Share {
	out := make([]Share, len(v.Ranking))
	for i, e := range v.Ranking {
		out[i] = Share{Player: e.Player, Share: e.Share}
	}
	return out
}

// NewRecords converts the normalized rows of a view, in sheet order.
func NewRecords(v *pipeline.View) []Record {
	skill := make(map[string]struct{}, len(v.Stats))
	for _, s := range v.Stats {
		skill[s] = struct{}{}
	}
	out := make([]Record, len(v.Normalized))
	for i, r := range v.Normalized {
		rec := Record{Player: r.Player, Role: r.Role, Overall: r.Overall, Stats: r.Stats}
		if i < len(v.Raw) {
			rec.Extra = extraColumns(v.Columns, skill, v.Raw[i])
		}
		if r.Dated() {
			d := r.Date
			rec.Date = &d
		}
		out[i] = rec
	}
	return out
}

func extraColumns(columns []string, skill map[string]struct{}, raw model.Record) map[string]model.Value {
	var out map[string]model.Value
	for _, c := range columns {
		if _, ok := skill[c]; ok {
			continue
		}
		if out == nil {
			out = make(map[string]model.Value)
		}
		out[c] = raw.Stat(c)
	}
	return out
}
