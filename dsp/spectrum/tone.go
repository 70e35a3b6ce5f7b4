package spectrum

import (
	"fmt"
	"math"
)

// ToneAmplitude estimates the peak amplitude of a sinusoid at freq Hz in x
// using the Goertzel recurrence. For a tone spanning whole cycles the result
// equals its amplitude.
func ToneAmplitude(x []float64, freq, sampleRate float64) (float64, error) {
	if len(x) == 0 {
		return 0, ErrEmptyInput
	}
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSampleRate, sampleRate)
	}
	if !(freq >= 0 && freq <= sampleRate/2) {
		return 0, fmt.Errorf("spectrum: tone %v Hz outside [0, %v] Hz", freq, sampleRate/2)
	}
	return 2 * math.Sqrt(tonePower(x, freq/sampleRate)) / float64(len(x)), nil
}

// tonePower returns |X(f)|^2 at normalised frequency f in cycles per sample.
func tonePower(x []float64, f float64) float64 {
	c := 2 * math.Cos(2*math.Pi*f)
	var s1, s2 float64
	for _, v := range x {
		s1, s2 = v+c*s1-s2, s1
	}
	return max(s1*s1+s2*s2-c*s1*s2, 0)
}
