package eeg

import "math"

// Canonical band names in ascending frequency order.
const (
	BandDelta = "delta"
	BandTheta = "theta"
	BandAlpha = "alpha"
	BandBeta  = "beta"
)

// BandPowers holds mean PSD per canonical band. All four fields are always
// present; an empty band is 0.
type BandPowers struct {
	Delta float64 `json:"delta"`
	Theta float64 `json:"theta"`
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// Get returns the power of the named band and whether the name is known.
func (b BandPowers) Get(name string) (float64, bool) {
	switch name {
	case BandDelta:
		return b.Delta, true
	case BandTheta:
		return b.Theta, true
	case BandAlpha:
		return b.Alpha, true
	case BandBeta:
		return b.Beta, true
	}
	return 0, false
}

// Set assigns the named band and reports whether the name is known.
func (b *BandPowers) Set(name string, v float64) bool {
	switch name {
	case BandDelta:
		b.Delta = v
	case BandTheta:
		b.Theta = v
	case BandAlpha:
		b.Alpha = v
	case BandBeta:
		b.Beta = v
	default:
		return false
	}
	return true
}

// Total returns the sum of the four bands.
func (b BandPowers) Total() float64 {
	return b.Delta + b.Theta + b.Alpha + b.Beta
}

// Valid reports whether every band is finite and non-negative.
func (b BandPowers) Valid() bool {
	for _, v := range []float64{b.Delta, b.Theta, b.Alpha, b.Beta} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ClinicalResult is the outcome of one analysis. It is not modified after the
// job that produced it completes.
type ClinicalResult struct {
	BandPowers         BandPowers `json:"bands"`
	RelativePowers     BandPowers `json:"relative_bands"`
	DominantFrequency  float64    `json:"dominant_frequency"`
	SeizureProbability float64    `json:"seizure_probability"`
	Summary            string     `json:"summary"`
	ModelVersion       string     `json:"model_version"`
}

// Payload is the boundary record returned to callers.
type Payload struct {
	SeizureProbability float64    `json:"seizure_probability"`
	Bands              BandPowers `json:"bands"`
	Summary            string     `json:"summary"`
}

// Payload projects r onto the boundary record.
func (r ClinicalResult) Payload() Payload {
	return Payload{
		SeizureProbability: r.SeizureProbability,
		Bands:              r.BandPowers,
		Summary:            r.Summary,
	}
}
