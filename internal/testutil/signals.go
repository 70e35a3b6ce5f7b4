package testutil

import (
	"math"
	"math/rand"
)

// Tone describes one sinusoidal component of a synthetic recording.
type Tone struct {
	FreqHz    float64
	Amplitude float64
	Phase     float64
}

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	return Tones(sampleRate, length, Tone{FreqHz: freqHz, Amplitude: amplitude})
}

// Tones sums the given sinusoids into one channel.
func Tones(sampleRate float64, length int, tones ...Tone) []float64 {
	out := make([]float64, length)
	for _, tone := range tones {
		step := 2 * math.Pi * tone.FreqHz / sampleRate
		for i := range out {
			out[i] += tone.Amplitude * math.Sin(step*float64(i)+tone.Phase)
		}
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Channels returns n copies of the given channel generator output, each
// generated independently so rows do not alias.
func Channels(n int, gen func(ch int) []float64) [][]float64 {
	out := make([][]float64, n)
	for ch := range out {
		out[ch] = gen(ch)
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Ones returns a slice of length n filled with 1.0.
func Ones(n int) []float64 {
	return DC(1.0, n)
}

// RMS returns the root-mean-square of data, ignoring skip samples at each edge.
func RMS(data []float64, skip int) float64 {
	if len(data) <= 2*skip {
		return 0
	}
	sum := 0.0
	body := data[skip : len(data)-skip]
	for _, v := range body {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(body)))
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}
