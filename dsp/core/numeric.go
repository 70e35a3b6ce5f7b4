// Package core holds small numeric helpers shared by the DSP and scoring
// packages.
package core

import "math"

// Clamp limits value to the inclusive range [lo, hi]. NaN maps to lo.
func Clamp(value, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	switch {
	case math.IsNaN(value), value < lo:
		return lo
	case value > hi:
		return hi
	default:
		return value
	}
}

// Finite reports whether x is neither NaN nor infinite.
func Finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// AmplitudeToDB converts an amplitude ratio to decibels. Zero maps to -Inf
// and negative ratios to NaN.
func AmplitudeToDB(linear float64) float64 {
	if linear < 0 {
		return math.NaN()
	}
	if linear == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(linear)
}
