package source

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/okian/squadmetrics/internal/domain/model"
)

// Reserved column names, matched case-insensitively.
const (
	ColumnDate   = "date"
	ColumnPlayer = "player"
	ColumnRole   = "role"
)

// dateLayouts are tried in order; month-first wins for ambiguous dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"1/2/2006 15:04:05",
	"1/2/2006",
	"1-2-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// ParseOption applies a configuration option to Parse.
type ParseOption func(*parseConfig)

type parseConfig struct {
	excluded map[string]struct{}
	stats    []string
}

// WithExcluded marks numeric columns that are kept in the raw listing but are
// not skill stats.
func WithExcluded(columns ...string) ParseOption {
	return func(c *parseConfig) {
		for _, col := range columns {
			c.excluded[strings.ToLower(strings.TrimSpace(col))] = struct{}{}
		}
	}
}

// WithStats restricts the skill stats to the given columns, in that order.
// Columns absent from the header are ignored.
func WithStats(stats ...string) ParseOption {
	return func(c *parseConfig) {
		c.stats = append(c.stats, stats...)
	}
}

// Parse reads a CSV stat sheet. Header names are trimmed. Every column other
// than Date, Player and Role is numeric; unparseable cells become Missing and
// unparseable dates leave the record undated. Rows without a player are
// dropped.
func Parse(r io.Reader, opts ...ParseOption) (model.Table, error) {
	cfg := parseConfig{excluded: map[string]struct{}{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return model.Table{}, ErrNoHeader
	}
	if err != nil {
		return model.Table{}, crerr.Wrap(err, "read header")
	}

	layout, err := newLayout(header)
	if err != nil {
		return model.Table{}, err
	}

	t := model.Table{
		Stats:   layout.skillStats(cfg),
		Columns: make([]string, 0, len(layout.numeric)),
	}
	for _, c := range layout.numeric {
		t.Columns = append(t.Columns, c.name)
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.Table{}, crerr.Wrapf(err, "read row %d", line)
		}
		rec, ok := layout.record(row)
		if !ok {
			continue
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

type column struct {
	name  string
	index int
}

type layout struct {
	date, player, role int
	numeric            []column
}

func newLayout(header []string) (layout, error) {
	l := layout{date: -1, player: -1, role: -1}
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		switch strings.ToLower(name) {
		case ColumnDate:
			l.date = i
		case ColumnPlayer:
			l.player = i
		case ColumnRole:
			l.role = i
		default:
			l.numeric = append(l.numeric, column{name: name, index: i})
		}
	}
	if l.player < 0 {
		return layout{}, ErrNoPlayerColumn
	}
	return l, nil
}

func (l layout) skillStats(cfg parseConfig) []string {
	if len(cfg.stats) > 0 {
		present := make(map[string]struct{}, len(l.numeric))
		for _, c := range l.numeric {
			present[c.name] = struct{}{}
		}
		out := make([]string, 0, len(cfg.stats))
		for _, s := range cfg.stats {
			s = strings.TrimSpace(s)
			if _, ok := present[s]; ok {
				out = append(out, s)
			}
		}
		return out
	}
	out := make([]string, 0, len(l.numeric))
	for _, c := range l.numeric {
		if _, skip := cfg.excluded[strings.ToLower(c.name)]; skip {
			continue
		}
		out = append(out, c.name)
	}
	return out
}

func (l layout) record(row []string) (model.Record, bool) {
	player := cell(row, l.player)
	if player == "" {
		return model.Record{}, false
	}
	rec := model.Record{
		Player: player,
		Role:   cell(row, l.role),
		Date:   parseDate(cell(row, l.date)),
		Stats:  make(map[string]model.Value, len(l.numeric)),
	}
	for _, c := range l.numeric {
		rec.Stats[c.name] = parseNumber(cell(row, c.index))
	}
	return rec, true
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseNumber(s string) model.Value {
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return model.Missing()
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return model.Missing()
	}
	return model.Some(f)
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
