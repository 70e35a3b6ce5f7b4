package spectrum

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-eeg/dsp/window"
	"github.com/cwbudde/algo-vecmath"
)

// DefaultSegmentLength is the nominal Welch segment length in samples.
const DefaultSegmentLength = 256

var (
	ErrEmptyInput         = errors.New("spectrum: empty input")
	ErrInvalidSampleRate  = errors.New("spectrum: sample rate must be > 0")
	ErrInvalidSegment     = errors.New("spectrum: segment length must be >= 1")
	ErrInvalidOverlap     = errors.New("spectrum: overlap must be in [0, 1)")
	ErrNonFiniteSpectrum  = errors.New("spectrum: non-finite density bins")
	ErrMismatchedSpectrum = errors.New("spectrum: spectra differ in length")
)

// PSD is a one-sided power spectral density.
type PSD struct {
	Freqs   []float64 // Hz, uniformly spaced from 0 to Nyquist
	Density []float64 // units²/Hz

	// SegmentLength is the number of signal samples per segment; FFTLength is
	// the transform size after zero padding.
	SegmentLength int
	FFTLength     int
	Segments      int

	// Shortened reports that the signal was shorter than the configured
	// segment and the whole signal was used as a single segment.
	Shortened bool
}

// Resolution returns the bin spacing in Hz.
func (p PSD) Resolution() float64 {
	if len(p.Freqs) < 2 {
		return 0
	}
	return p.Freqs[1] - p.Freqs[0]
}

// WelchOption configures a Welch estimator.
type WelchOption func(*Welch)

// WithSegmentLength sets the segment length in samples.
func WithSegmentLength(n int) WelchOption {
	return func(w *Welch) { w.segment = n }
}

// WithOverlap sets the fractional overlap between consecutive segments.
func WithOverlap(fraction float64) WelchOption {
	return func(w *Welch) { w.overlap = fraction }
}

// WithWindow selects the taper applied to every segment.
func WithWindow(t window.Type) WelchOption {
	return func(w *Welch) { w.window = t }
}

// WithoutDetrend disables per-segment mean removal.
func WithoutDetrend() WelchOption {
	return func(w *Welch) { w.detrend = false }
}

// Welch estimates power spectral density by averaging modified periodograms.
//
// Defaults: 256-sample segments, 50% overlap, periodic Hamming window,
// constant detrend and density scaling. Segments whose length is not a power
// of two are zero padded to the next one.
//
// A Welch caches FFT plans and scratch buffers and is not safe for concurrent
// use; create one per goroutine.
type Welch struct {
	sampleRate float64
	segment    int
	overlap    float64
	window     window.Type
	detrend    bool

	plans map[int]*algofft.Plan[complex128]
}

// NewWelch returns a Welch estimator for signals sampled at sampleRate.
func NewWelch(sampleRate float64, opts ...WelchOption) (*Welch, error) {
	w := &Welch{
		sampleRate: sampleRate,
		segment:    DefaultSegmentLength,
		overlap:    0.5,
		window:     window.TypeHamming,
		detrend:    true,
		plans:      make(map[int]*algofft.Plan[complex128]),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}

	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSampleRate, sampleRate)
	}
	if w.segment < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSegment, w.segment)
	}
	if w.overlap < 0 || w.overlap >= 1 || math.IsNaN(w.overlap) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOverlap, w.overlap)
	}
	return w, nil
}

// SampleRate returns the configured sample rate in Hz.
func (w *Welch) SampleRate() float64 { return w.sampleRate }

// Estimate computes the PSD of x. x is not modified.
func (w *Welch) Estimate(x []float64) (PSD, error) {
	n := len(x)
	if n == 0 {
		return PSD{}, ErrEmptyInput
	}

	seg := w.segment
	shortened := false
	if n < seg {
		seg = n
		shortened = true
	}
	step := max(seg-int(math.Floor(w.overlap*float64(seg))), 1)
	nfft := nextPowerOf2(seg)
	bins := nfft/2 + 1

	plan, err := w.plan(nfft)
	if err != nil {
		return PSD{}, err
	}

	taper := window.Generate(w.window, seg, window.WithPeriodic())
	energy := window.Energy(taper)

	frame := make([]float64, seg)
	buf := make([]complex128, nfft)
	pow := make([]float64, bins)
	acc := make([]float64, bins)

	segments := 0
	for start := 0; start+seg <= n; start += step {
		copy(frame, x[start:start+seg])
		if w.detrend {
			removeMean(frame)
		}
		vecmath.MulBlockInPlace(frame, taper)

		for i := range buf {
			buf[i] = 0
		}
		for i, v := range frame {
			buf[i] = complex(v, 0)
		}
		if err := plan.Forward(buf, buf); err != nil {
			return PSD{}, fmt.Errorf("spectrum: forward FFT failed: %w", err)
		}
		PowerInto(pow, buf)
		vecmath.AddBlockInPlace(acc, pow)
		segments++
	}

	// Average, apply density scaling and fold negative frequencies.
	scale := 1 / (w.sampleRate * energy * float64(segments))
	vecmath.ScaleBlock(acc, acc, scale)
	last := bins - 1
	if nfft%2 != 0 {
		last = bins
	}
	for k := 1; k < last; k++ {
		acc[k] *= 2
	}

	freqs := make([]float64, bins)
	df := w.sampleRate / float64(nfft)
	for k := range freqs {
		freqs[k] = float64(k) * df
	}

	psd := PSD{
		Freqs:         freqs,
		Density:       acc,
		SegmentLength: seg,
		FFTLength:     nfft,
		Segments:      segments,
		Shortened:     shortened,
	}
	if !allFinite(acc) {
		return psd, ErrNonFiniteSpectrum
	}
	return psd, nil
}

func (w *Welch) plan(n int) (*algofft.Plan[complex128], error) {
	if p, ok := w.plans[n]; ok {
		return p, nil
	}
	p, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("spectrum: failed to create FFT plan: %w", err)
	}
	w.plans[n] = p
	return p, nil
}

// AverageDensity returns the bin-wise arithmetic mean of psds, which must
// share one frequency grid.
func AverageDensity(psds []PSD) (PSD, error) {
	if len(psds) == 0 {
		return PSD{}, ErrEmptyInput
	}
	out := psds[0]
	out.Freqs = append([]float64(nil), psds[0].Freqs...)
	out.Density = make([]float64, len(psds[0].Density))
	for i, p := range psds {
		if len(p.Density) != len(out.Density) {
			return PSD{}, fmt.Errorf("%w: spectrum %d has %d bins, want %d",
				ErrMismatchedSpectrum, i, len(p.Density), len(out.Density))
		}
		vecmath.AddBlockInPlace(out.Density, p.Density)
	}
	vecmath.ScaleBlock(out.Density, out.Density, 1/float64(len(psds)))
	return out, nil
}

// SanitizeDensity replaces NaN and infinite bins with zero and returns how many
// bins were replaced.
func SanitizeDensity(density []float64) int {
	replaced := 0
	for i, v := range density {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			density[i] = 0
			replaced++
		}
	}
	return replaced
}

func removeMean(x []float64) {
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	mean := sum / float64(len(x))
	for i := range x {
		x[i] -= mean
	}
}

func allFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
