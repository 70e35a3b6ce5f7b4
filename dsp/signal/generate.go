// Package signal synthesizes deterministic EEG-like test recordings.
package signal

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// DefaultSampleRate is the sample rate used when none is configured.
const DefaultSampleRate = 256.0

// Generator creates deterministic signals from a shared configuration.
type Generator struct {
	sampleRate float64
	seed       uint64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSampleRate sets the sample rate in Hz. Non-positive values are ignored.
func WithSampleRate(hz float64) Option {
	return func(g *Generator) {
		if hz > 0 {
			g.sampleRate = hz
		}
	}
}

// WithSeed sets the deterministic random seed for noise generation.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a configured signal generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{sampleRate: DefaultSampleRate, seed: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// SampleRate returns the generator sample rate in Hz.
func (g *Generator) SampleRate() float64 { return g.sampleRate }

// Seed returns the noise seed.
func (g *Generator) Seed() uint64 { return g.seed }

// Sine generates a sine wave.
func (g *Generator) Sine(freqHz, amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("sine samples must be > 0: %d", samples)
	}
	out := make([]float64, samples)
	addSine(out, freqHz, amplitude, 0, g.sampleRate)
	return out, nil
}

// WhiteNoise generates deterministic white noise in [-amplitude, amplitude].
func (g *Generator) WhiteNoise(amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("noise samples must be > 0: %d", samples)
	}
	if amplitude < 0 {
		return nil, fmt.Errorf("noise amplitude must be >= 0: %f", amplitude)
	}
	out := make([]float64, samples)
	addNoise(out, amplitude, g.rng(0))
	return out, nil
}

// Component is one oscillatory rhythm in a synthetic recording.
type Component struct {
	FreqHz    float64
	Amplitude float64
	Phase     float64
}

// Rhythm describes the content of every channel in a synthetic recording.
type Rhythm struct {
	Components []Component

	// Noise is the peak amplitude of additive uniform white noise.
	Noise float64

	// LineHz and LineAmplitude add mains interference when both are > 0.
	LineHz        float64
	LineAmplitude float64
}

var errNoChannels = errors.New("signal: channel count must be > 0")

// Rhythm renders r into a single channel of the given length. ch offsets the
// noise stream and component phases so channels are not identical.
func (g *Generator) Rhythm(r Rhythm, ch, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("rhythm samples must be > 0: %d", samples)
	}
	if r.Noise < 0 {
		return nil, fmt.Errorf("rhythm noise must be >= 0: %f", r.Noise)
	}
	nyquist := g.sampleRate / 2
	out := make([]float64, samples)
	for _, c := range r.Components {
		if c.FreqHz < 0 || c.FreqHz >= nyquist {
			return nil, fmt.Errorf("rhythm component %g Hz outside [0, %g)", c.FreqHz, nyquist)
		}
		addSine(out, c.FreqHz, c.Amplitude, c.Phase+0.37*float64(ch), g.sampleRate)
	}
	if r.LineHz > 0 && r.LineAmplitude > 0 && r.LineHz < nyquist {
		addSine(out, r.LineHz, r.LineAmplitude, 0, g.sampleRate)
	}
	if r.Noise > 0 {
		addNoise(out, r.Noise, g.rng(uint64(ch)))
	}
	return out, nil
}

// Recording renders r into channels rows of seconds duration.
func (g *Generator) Recording(r Rhythm, channels int, seconds float64) ([][]float64, error) {
	if channels <= 0 {
		return nil, errNoChannels
	}
	samples := int(math.Round(seconds * g.sampleRate))
	out := make([][]float64, channels)
	for ch := range out {
		row, err := g.Rhythm(r, ch, samples)
		if err != nil {
			return nil, err
		}
		out[ch] = row
	}
	return out, nil
}

// RestingAlpha is an eyes-closed style recording dominated by a 10 Hz rhythm.
func RestingAlpha() Rhythm {
	return Rhythm{
		Components: []Component{
			{FreqHz: 10, Amplitude: 40},
			{FreqHz: 20, Amplitude: 10},
			{FreqHz: 2, Amplitude: 15},
		},
		Noise: 5,
	}
}

// BetaDominant is a recording whose 20 Hz beta activity greatly exceeds alpha.
func BetaDominant() Rhythm {
	return Rhythm{
		Components: []Component{
			{FreqHz: 10, Amplitude: 10},
			{FreqHz: 20, Amplitude: 60},
		},
		Noise: 5,
	}
}

// Normalize scales data to target peak amplitude and returns a new slice.
func Normalize(data []float64, targetPeak float64) ([]float64, error) {
	if targetPeak < 0 {
		return nil, fmt.Errorf("normalize target peak must be >= 0: %f", targetPeak)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("normalize input must not be empty")
	}

	maxAbs := 0.0
	for _, v := range data {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}

	out := make([]float64, len(data))
	if maxAbs == 0 || targetPeak == 0 {
		return out, nil
	}
	scale := targetPeak / maxAbs
	for i, v := range data {
		out[i] = v * scale
	}
	return out, nil
}

func (g *Generator) rng(stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(g.seed, stream))
}

func addSine(dst []float64, freqHz, amplitude, phase, sampleRate float64) {
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range dst {
		dst[i] += amplitude * math.Sin(step*float64(i)+phase)
	}
}

func addNoise(dst []float64, amplitude float64, rng *rand.Rand) {
	for i := range dst {
		dst[i] += (rng.Float64()*2 - 1) * amplitude
	}
}
