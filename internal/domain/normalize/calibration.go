// Package normalize rescales raw stat values onto a bounded common scale.
package normalize

import (
	"fmt"
	"strings"
)

// Mode selects how a stat is calibrated.
type Mode string

// Calibration modes.
const (
	// ModePassThrough assumes the raw value is already on the target scale.
	ModePassThrough Mode = "pass-through"
	// ModeFixed rescales linearly between a tuned (low, high) pair.
	ModeFixed Mode = "fixed"
	// ModeDynamicMax rescales against the column maximum of the current table.
	ModeDynamicMax Mode = "dynamic-max"
	// ModeNone leaves the stat unresolved; every value normalizes to Missing.
	ModeNone Mode = "none"
)

// Calibration describes how one stat maps onto the scale.
// For ModeDynamicMax, High holds the observed column maximum once resolved.
type Calibration struct {
	Mode Mode
	Low  float64
	High float64
}

// PassThrough returns a pass-through calibration.
func PassThrough() Calibration { return Calibration{Mode: ModePassThrough} }

// Fixed returns a (low, high) linear calibration.
func Fixed(low, high float64) Calibration {
	return Calibration{Mode: ModeFixed, Low: low, High: high}
}

// DynamicMax returns an unresolved dynamic-max calibration.
func DynamicMax() Calibration { return Calibration{Mode: ModeDynamicMax} }

// Unresolved returns a calibration that yields Missing for every value.
func Unresolved() Calibration { return Calibration{Mode: ModeNone} }

// ParseMode parses a mode name, accepting a few spellings.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pass-through", "passthrough", "pass_through":
		return ModePassThrough, nil
	case "fixed", "range":
		return ModeFixed, nil
	case "dynamic-max", "dynamic", "dynamic_max", "max":
		return ModeDynamicMax, nil
	case "none", "":
		return ModeNone, nil
	default:
		return "", fmt.Errorf("unknown calibration mode: %q", s)
	}
}
