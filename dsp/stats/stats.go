// Package stats computes single-pass amplitude statistics of a sampled
// channel.
package stats

import "math"

// Summary holds time-domain statistics of one channel.
type Summary struct {
	Samples       int
	Mean          float64
	RMS           float64
	Min           float64
	Max           float64
	Peak          float64 // max(|Min|, |Max|)
	Variance      float64 // population variance
	Kurtosis      float64 // excess kurtosis, 0 when Variance is 0
	ZeroCrossings int
}

// Range returns Max - Min.
func (s Summary) Range() float64 { return s.Max - s.Min }

// Flat reports whether the channel never deviates from its mean by more than
// tol.
func (s Summary) Flat(tol float64) bool {
	return s.Samples == 0 || s.Range() <= tol
}

// Summarize computes all statistics in one pass. Moments use Welford's
// update so long recordings with a large offset stay accurate.
func Summarize(x []float64) Summary {
	if len(x) == 0 {
		return Summary{}
	}

	var (
		mean, m2, m3, m4 float64
		sumSq            float64
		lo, hi           = x[0], x[0]
		crossings        int
	)
	for i, v := range x {
		n := float64(i + 1)
		delta := v - mean
		dn := delta / n
		dn2 := dn * dn
		term := delta * dn * float64(i)

		// m4 before m3 before m2.
		m4 += term*dn2*(n*n-3*n+3) + 6*dn2*m2 - 4*dn*m3
		m3 += term*dn*(n-2) - 3*dn*m2
		m2 += term
		mean += dn

		sumSq += v * v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		if i > 0 && x[i-1]*v < 0 {
			crossings++
		}
	}

	nf := float64(len(x))
	s := Summary{
		Samples:       len(x),
		Mean:          mean,
		RMS:           math.Sqrt(sumSq / nf),
		Min:           lo,
		Max:           hi,
		Peak:          math.Max(math.Abs(lo), math.Abs(hi)),
		Variance:      m2 / nf,
		ZeroCrossings: crossings,
	}
	if s.Variance > 0 {
		s.Kurtosis = (m4/nf)/(s.Variance*s.Variance) - 3
	}
	return s
}

// RMS returns the root-mean-square of x, or 0 for an empty slice.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sumSq float64
	for _, v := range x {
		sumSq += v * v
	}
	return math.Sqrt(sumSq / float64(len(x)))
}
