// Package testutil holds the signal generators and float assertions shared
// by the DSP and pipeline tests.
package testutil

import (
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails t at the first index where got and want
// differ by more than eps, or when their lengths differ.
func RequireSliceNearlyEqual(t testing.TB, got, want []float64, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length %d, want %d", len(got), len(want))
		return
	}
	for i, g := range got {
		if g == want[i] {
			continue
		}
		if d := math.Abs(g - want[i]); !(d <= eps) {
			t.Fatalf("[%d] = %v, want %v (|diff| %.3g > %.3g)", i, g, want[i], d, eps)
			return
		}
	}
}

// RequireFinite fails t on the first NaN or infinity in data.
func RequireFinite(t testing.TB, data []float64) {
	t.Helper()
	requireEach(t, data, "finite", func(v float64) bool {
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	})
}

// RequireNonNegative fails t on the first negative or non-finite value, the
// contract of a power spectral density.
func RequireNonNegative(t testing.TB, data []float64) {
	t.Helper()
	requireEach(t, data, "finite and >= 0", func(v float64) bool {
		return v >= 0 && !math.IsInf(v, 0)
	})
}

func requireEach(t testing.TB, data []float64, what string, ok func(float64) bool) {
	t.Helper()
	for i, v := range data {
		if !ok(v) {
			t.Fatalf("[%d] = %v, want %s", i, v, what)
			return
		}
	}
}
