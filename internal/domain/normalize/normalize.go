package normalize

import (
	"github.com/okian/squadmetrics/internal/domain/model"
)

// DefaultScale is the top of the common scale.
const DefaultScale = 100

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithScale sets the top of the scale S.
func WithScale(scale float64) Option {
	return func(n *Normalizer) {
		if scale > 0 {
			n.scale = scale
		}
	}
}

// WithCalibrations sets per-stat calibrations. The map is copied.
func WithCalibrations(c map[string]Calibration) Option {
	return func(n *Normalizer) {
		n.calibrations = make(map[string]Calibration, len(c))
		for stat, cal := range c {
			n.calibrations[stat] = cal
		}
	}
}

// WithDefault sets the calibration used for stats without an explicit one.
func WithDefault(c Calibration) Option {
	return func(n *Normalizer) {
		n.fallback = c
	}
}

// Normalizer maps raw stats onto [0, S]. It holds configuration only;
// dynamic calibrations are resolved per table and never cached.
type Normalizer struct {
	scale        float64
	calibrations map[string]Calibration
	fallback     Calibration
}

// New creates a Normalizer. Without options every stat uses dynamic-max on a
// 0-100 scale.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		scale:        DefaultScale,
		calibrations: map[string]Calibration{},
		fallback:     DynamicMax(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Scale returns S.
func (n *Normalizer) Scale() float64 { return n.scale }

// CalibrationFor returns the configured calibration of a stat.
func (n *Normalizer) CalibrationFor(stat string) Calibration {
	if c, ok := n.calibrations[stat]; ok {
		return c
	}
	return n.fallback
}

// Normalize maps one raw value onto [0, S]. A dynamic-max calibration must
// already carry the resolved column maximum in High.
func (n *Normalizer) Normalize(_ string, raw model.Value, c Calibration) model.Value {
	f, ok := raw.Get()
	if !ok {
		return model.Missing()
	}
	switch c.Mode {
	case ModePassThrough:
		return model.Some(model.Clamp(f, 0, n.scale))
	case ModeFixed:
		if c.High <= c.Low {
			return model.Missing()
		}
		return model.Some(model.Clamp((f-c.Low)/(c.High-c.Low)*n.scale, 0, n.scale))
	case ModeDynamicMax:
		if c.High <= 0 {
			return model.Missing()
		}
		return model.Some(model.Clamp(f/c.High*n.scale, 0, n.scale))
	default:
		return model.Missing()
	}
}

// Resolve returns the effective calibration of each skill stat for the table,
// filling in the column maximum of every dynamic-max stat.
func (n *Normalizer) Resolve(t model.Table) map[string]Calibration {
	out := make(map[string]Calibration, len(t.Stats))
	for _, stat := range t.Stats {
		c := n.CalibrationFor(stat)
		if c.Mode == ModeDynamicMax {
			c.High = columnMax(t.Records, stat).Or(0)
		}
		out[stat] = c
	}
	return out
}

// NormalizeTable rescales every skill stat of every record. Overall is left
// Missing; scoring fills it in. The raw table is not modified.
func (n *Normalizer) NormalizeTable(t model.Table) []model.NormalizedRecord {
	cals := n.Resolve(t)
	out := make([]model.NormalizedRecord, len(t.Records))
	for i, r := range t.Records {
		nr := model.NormalizedRecord{Record: r}
		nr.Stats = make(map[string]model.Value, len(t.Stats))
		for _, stat := range t.Stats {
			nr.Stats[stat] = n.Normalize(stat, r.Stat(stat), cals[stat])
		}
		out[i] = nr
	}
	return out
}

func columnMax(records []model.Record, stat string) model.Value {
	best := model.Missing()
	for _, r := range records {
		f, ok := r.Stat(stat).Get()
		if !ok {
			continue
		}
		if b, has := best.Get(); !has || f > b {
			best = model.Some(f)
		}
	}
	return best
}
