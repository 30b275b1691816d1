package model

import (
	"math"
	"strconv"
)

// NotAvailable is the text rendering of a Missing value.
const NotAvailable = "N/A"

// Value is an optional measurement. The zero Value is Missing.
//
// Arithmetic on stats goes through Value so that absent data is explicit
// instead of riding along as NaN.
type Value struct {
	v  float64
	ok bool
}

// Some wraps a present value. NaN and infinities are treated as Missing.
func Some(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{v: v, ok: true}
}

// Missing returns the absent value.
func Missing() Value { return Value{} }

// Get returns the value and whether it is present.
func (x Value) Get() (float64, bool) { return x.v, x.ok }

// IsMissing reports whether the value is absent.
func (x Value) IsMissing() bool { return !x.ok }

// Or returns the value, or def when Missing.
func (x Value) Or(def float64) float64 {
	if !x.ok {
		return def
	}
	return x.v
}

// Sub returns x - y, Missing if either side is Missing.
func (x Value) Sub(y Value) Value {
	if !x.ok || !y.ok {
		return Missing()
	}
	return Some(x.v - y.v)
}

// String renders the value with one decimal, or N/A.
func (x Value) String() string {
	if !x.ok {
		return NotAvailable
	}
	return strconv.FormatFloat(x.v, 'f', 1, 64)
}

// MarshalJSON renders Missing as null.
func (x Value) MarshalJSON() ([]byte, error) {
	if !x.ok {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, x.v, 'g', -1, 64), nil
}

// UnmarshalJSON accepts a number or null.
func (x *Value) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*x = Missing()
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*x = Some(f)
	return nil
}

// Mean returns the arithmetic mean of the present values, Missing if none.
func Mean(values []Value) Value {
	var sum float64
	n := 0
	for _, v := range values {
		if f, ok := v.Get(); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return Missing()
	}
	return Some(sum / float64(n))
}

// Clamp bounds f to [lo, hi].
func Clamp(f, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, f))
}
