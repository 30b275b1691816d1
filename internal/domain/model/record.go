// Package model contains domain models passed between layers.
package model

import (
	"sort"
	"time"
)

// Record is one observation of a player's statistics on a date.
// Fields mirror the columns of the raw stat sheet.
type Record struct {
	Date   time.Time        // match date; zero when the sheet value could not be parsed
	Player string           // player identifier, never empty
	Role   string           // optional role label, e.g. "Duelist"
	Stats  map[string]Value // stat name -> raw value
}

// Dated reports whether the record carries a usable date.
func (r Record) Dated() bool { return !r.Date.IsZero() }

// Stat returns the value of a stat, Missing when the column is absent.
func (r Record) Stat(name string) Value {
	if v, ok := r.Stats[name]; ok {
		return v
	}
	return Missing()
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	out.Stats = make(map[string]Value, len(r.Stats))
	for k, v := range r.Stats {
		out.Stats[k] = v
	}
	return out
}

// NormalizedRecord is a record whose skill stats were rescaled onto the
// common scale, plus the composite overall score.
type NormalizedRecord struct {
	Record
	Overall Value
}

// Table is a fully materialized snapshot of the raw stat sheet.
type Table struct {
	// Stats lists the skill stat columns in declaration order.
	Stats []string
	// Columns lists every numeric column, skill or not, in sheet order.
	Columns []string
	Records []Record
}

// Empty reports whether the table holds no records.
func (t Table) Empty() bool { return len(t.Records) == 0 }

// Players returns the distinct player identifiers in ascending order.
func (t Table) Players() []string {
	seen := make(map[string]struct{}, len(t.Records))
	out := make([]string, 0)
	for _, r := range t.Records {
		if _, ok := seen[r.Player]; ok {
			continue
		}
		seen[r.Player] = struct{}{}
		out = append(out, r.Player)
	}
	sort.Strings(out)
	return out
}

// Chronological drops undated records and stable-sorts the rest by date.
// The input slice is not modified.
func Chronological(records []NormalizedRecord) []NormalizedRecord {
	out := make([]NormalizedRecord, 0, len(records))
	for _, r := range records {
		if r.Dated() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// GroupByPlayer splits records per player, keeping input order within a group.
func GroupByPlayer(records []NormalizedRecord) map[string][]NormalizedRecord {
	out := make(map[string][]NormalizedRecord)
	for _, r := range records {
		out[r.Player] = append(out[r.Player], r)
	}
	return out
}
