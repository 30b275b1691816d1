// Package aggregate turns a player's chronological score history into
// career, form, consistency, impact and trend figures.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/okian/squadmetrics/internal/domain/model"
)

// Default aggregation parameters.
const (
	DefaultFormWindow        = 3
	DefaultConsistencyWindow = 5
	DefaultSensitivity       = 1.0
	DefaultCeiling           = 100
)

// ImpactWeights blends career, form and consistency into impact.
type ImpactWeights struct {
	Career      float64
	Form        float64
	Consistency float64
}

// DefaultImpactWeights favours long-run performance.
var DefaultImpactWeights = ImpactWeights{Career: 0.6, Form: 0.25, Consistency: 0.15}

// Point is one entry of a player's performance series.
type Point struct {
	Date    time.Time   `json:"date"`
	Overall model.Value `json:"overall"`
}

// StatValue is a named normalized stat.
type StatValue struct {
	Stat  string      `json:"stat"`
	Value model.Value `json:"value"`
}

// PlayerAggregate is derived from a player's history on demand and never stored.
type PlayerAggregate struct {
	Player      string
	Records     int
	Career      model.Value
	Form        model.Value
	Consistency model.Value
	Impact      model.Value
	Trend       model.Value
	Latest      model.Value
	Best        string
	Worst       string
	LatestStats []StatValue
	Series      []Point
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithFormWindow sets K, the number of trailing records averaged for form.
func WithFormWindow(k int) Option {
	return func(a *Aggregator) {
		if k > 0 {
			a.formWindow = k
		}
	}
}

// WithConsistencyWindow sets how many trailing records feed the dispersion.
func WithConsistencyWindow(n int) Option {
	return func(a *Aggregator) {
		if n > 1 {
			a.consistencyWindow = n
		}
	}
}

// WithSensitivity sets alpha, the consistency penalty per unit of stdev.
func WithSensitivity(alpha float64) Option {
	return func(a *Aggregator) {
		if alpha >= 0 {
			a.sensitivity = alpha
		}
	}
}

// WithCeiling sets the top of the score scale.
func WithCeiling(ceiling float64) Option {
	return func(a *Aggregator) {
		if ceiling > 0 {
			a.ceiling = ceiling
		}
	}
}

// WithImpactWeights sets the impact blend.
func WithImpactWeights(w ImpactWeights) Option {
	return func(a *Aggregator) {
		a.weights = w
	}
}

// WithStatOrder sets the declaration order used for best/worst tie-breaks.
func WithStatOrder(stats []string) Option {
	return func(a *Aggregator) {
		a.statOrder = append([]string(nil), stats...)
	}
}

// Aggregator computes PlayerAggregates. It holds configuration only.
type Aggregator struct {
	formWindow        int
	consistencyWindow int
	sensitivity       float64
	ceiling           float64
	weights           ImpactWeights
	statOrder         []string
}

// New creates an Aggregator with defaults overridden by opts.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		formWindow:        DefaultFormWindow,
		consistencyWindow: DefaultConsistencyWindow,
		sensitivity:       DefaultSensitivity,
		ceiling:           DefaultCeiling,
		weights:           DefaultImpactWeights,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// InOrder returns a copy that lists latest stats in the given declaration
// order, unless an order was already configured.
func (a *Aggregator) InOrder(stats []string) *Aggregator {
	if len(a.statOrder) > 0 || len(stats) == 0 {
		return a
	}
	cp := *a
	cp.statOrder = append([]string(nil), stats...)
	return &cp
}

// Aggregate computes the figures for one player's history. Undated records are
// dropped and the rest stable-sorted by date before anything is computed.
func (a *Aggregator) Aggregate(history []model.NormalizedRecord) PlayerAggregate {
	recs := model.Chronological(history)
	out := PlayerAggregate{Records: len(recs)}
	if len(history) > 0 {
		out.Player = history[0].Player
	}
	if len(recs) == 0 {
		out.Career, out.Form, out.Consistency = model.Missing(), model.Missing(), model.Missing()
		out.Impact, out.Trend, out.Latest = model.Missing(), model.Missing(), model.Missing()
		return out
	}

	overall := make([]model.Value, len(recs))
	out.Series = make([]Point, len(recs))
	for i, r := range recs {
		overall[i] = r.Overall
		out.Series[i] = Point{Date: r.Date, Overall: r.Overall}
	}

	out.Career = model.Mean(overall)
	out.Form = model.Mean(tail(overall, a.formWindow))
	out.Consistency = a.consistency(tail(overall, a.consistencyWindow))
	out.Impact = a.impact(out.Career, out.Form, out.Consistency)
	out.Trend = trend(overall)

	latest := recs[len(recs)-1]
	out.Latest = latest.Overall
	out.LatestStats = a.latestStats(latest)
	out.Best, out.Worst = bestWorst(out.LatestStats)
	return out
}

// consistency is Ceiling - alpha*stdev, clamped. Fewer than two present
// points count as zero dispersion.
func (a *Aggregator) consistency(window []model.Value) model.Value {
	sd, ok := sampleStdev(window)
	if !ok {
		return model.Some(a.ceiling)
	}
	return model.Some(model.Clamp(a.ceiling-a.sensitivity*sd, 0, a.ceiling))
}

func (a *Aggregator) impact(career, form, consistency model.Value) model.Value {
	c, ok1 := career.Get()
	f, ok2 := form.Get()
	k, ok3 := consistency.Get()
	if !ok1 || !ok2 || !ok3 {
		return model.Missing()
	}
	return model.Some(a.weights.Career*c + a.weights.Form*f + a.weights.Consistency*k)
}

func (a *Aggregator) latestStats(r model.NormalizedRecord) []StatValue {
	order := a.statOrder
	if len(order) == 0 {
		order = make([]string, 0, len(r.Stats))
		for s := range r.Stats {
			order = append(order, s)
		}
		sort.Strings(order)
	}
	out := make([]StatValue, 0, len(order))
	for _, s := range order {
		out = append(out, StatValue{Stat: s, Value: r.Stat(s)})
	}
	return out
}

// bestWorst picks the highest and lowest present stat; the first declared
// stat wins ties.
func bestWorst(stats []StatValue) (best, worst string) {
	var hi, lo float64
	found := false
	for _, sv := range stats {
		v, ok := sv.Value.Get()
		if !ok {
			continue
		}
		if !found {
			best, worst, hi, lo, found = sv.Stat, sv.Stat, v, v, true
			continue
		}
		if v > hi {
			best, hi = sv.Stat, v
		}
		if v < lo {
			worst, lo = sv.Stat, v
		}
	}
	return best, worst
}

// trend is the mean of successive differences between adjacent records whose
// overall is present on both sides.
func trend(overall []model.Value) model.Value {
	diffs := make([]model.Value, 0, len(overall))
	for i := 1; i < len(overall); i++ {
		diffs = append(diffs, overall[i].Sub(overall[i-1]))
	}
	return model.Mean(diffs)
}

// tail returns the last n record slots, Missing entries included.
func tail(values []model.Value, n int) []model.Value {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

// sampleStdev is the n-1 standard deviation of the present values.
func sampleStdev(values []model.Value) (float64, bool) {
	xs := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := v.Get(); ok {
			xs = append(xs, f)
		}
	}
	if len(xs) < 2 {
		return 0, false
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return math.Sqrt(ss / float64(len(xs)-1)), true
}
