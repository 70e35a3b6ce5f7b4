package bands

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-eeg/dsp/core"
	"github.com/cwbudde/algo-eeg/dsp/spectrum"
	"github.com/cwbudde/algo-eeg/dsp/window"
	"github.com/cwbudde/algo-eeg/eeg"
)

// Option configures an Estimator.
type Option func(*Estimator)

// WithRange sets the retained frequency range in Hz.
func WithRange(minHz, maxHz float64) Option {
	return func(e *Estimator) {
		e.minHz = minHz
		e.maxHz = maxHz
	}
}

// WithSegmentLength sets the Welch segment length in samples.
func WithSegmentLength(n int) Option {
	return func(e *Estimator) { e.segment = n }
}

// WithOverlap sets the fractional Welch segment overlap.
func WithOverlap(fraction float64) Option {
	return func(e *Estimator) { e.overlap = fraction }
}

// WithWindow selects the Welch segment taper.
func WithWindow(t window.Type) Option {
	return func(e *Estimator) { e.window = t }
}

// WithChannelPolicy selects the channel averaging order.
func WithChannelPolicy(p ChannelPolicy) Option {
	return func(e *Estimator) { e.policy = p }
}

// WithHalfOpenBands makes band membership [low, high) instead of the default
// inclusive [low, high].
func WithHalfOpenBands() Option {
	return func(e *Estimator) { e.halfOpen = true }
}

// Estimator computes band powers from conditioned recordings. It holds no
// mutable state and is safe for concurrent use.
type Estimator struct {
	minHz, maxHz float64
	segment      int
	overlap      float64
	window       window.Type
	policy       ChannelPolicy
	halfOpen     bool
}

// New returns an Estimator with 256-sample Hamming segments, 50% overlap, a
// 0.5-40 Hz analysis range and inclusive band edges.
func New(opts ...Option) (*Estimator, error) {
	e := &Estimator{
		minHz:   0.5,
		maxHz:   40,
		segment: spectrum.DefaultSegmentLength,
		overlap: 0.5,
		window:  window.TypeHamming,
		policy:  AverageSpectra,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if !(e.minHz >= 0) || !(e.maxHz > e.minHz) {
		return nil, fmt.Errorf("bands: invalid range %v-%v Hz", e.minHz, e.maxHz)
	}
	if e.policy != AverageSpectra && e.policy != AverageBands {
		return nil, fmt.Errorf("bands: unknown channel policy %d", e.policy)
	}
	return e, nil
}

// Policy returns the channel averaging policy.
func (e *Estimator) Policy() ChannelPolicy { return e.policy }

// Estimate computes band powers for sig.
//
// Non-finite PSD bins and band values are replaced with 0 and reported in
// Estimate.Issues; they never reach the returned powers. A returned error is
// always an *eeg.EstimationError and means no powers could be computed.
func (e *Estimator) Estimate(sig eeg.ConditionedSignal) (Estimate, error) {
	if sig.NumChannels() == 0 || sig.NumSamples() == 0 {
		return Estimate{}, &eeg.EstimationError{Stage: "input", Channel: -1, Err: spectrum.ErrEmptyInput}
	}

	welch, err := spectrum.NewWelch(sig.SampleRate(),
		spectrum.WithSegmentLength(e.segment),
		spectrum.WithOverlap(e.overlap),
		spectrum.WithWindow(e.window),
	)
	if err != nil {
		return Estimate{}, &eeg.EstimationError{Stage: "welch", Channel: -1, Err: err}
	}

	var est Estimate
	psds := make([]spectrum.PSD, sig.NumChannels())
	for ch := range psds {
		psd, err := welch.Estimate(sig.Row(ch))
		switch {
		case errors.Is(err, spectrum.ErrNonFiniteSpectrum):
			n := spectrum.SanitizeDensity(psd.Density)
			est.issue("welch", ch, fmt.Errorf("%w: %d bins zeroed", err, n))
		case err != nil:
			return Estimate{}, &eeg.EstimationError{Stage: "welch", Channel: ch, Err: err}
		}
		psds[ch] = e.restrict(psd)
	}
	if psds[0].Shortened {
		est.issue("segment", -1, fmt.Errorf("%w (%d samples)", errShortInput, psds[0].SegmentLength))
	}

	avg, err := spectrum.AverageDensity(psds)
	if err != nil {
		return Estimate{}, &eeg.EstimationError{Stage: "average", Channel: -1, Err: err}
	}
	est.Spectrum = avg
	est.Resolution = sig.SampleRate() / float64(psds[0].FFTLength)
	est.Segments = psds[0].Segments

	switch e.policy {
	case AverageBands:
		for _, b := range Canonical {
			sum := 0.0
			for _, psd := range psds {
				v, _ := spectrum.MeanBand(psd, e.member(b))
				sum += v
			}
			est.Power.Set(b.Name, sum/float64(len(psds)))
		}
	default:
		for _, b := range Canonical {
			v, _ := spectrum.MeanBand(avg, e.member(b))
			est.Power.Set(b.Name, v)
		}
	}
	e.sanitize(&est)

	if f, ok := spectrum.PeakFrequency(avg, e.minHz, e.maxHz); ok {
		est.DominantFrequency = f
	}

	total := est.Power.Total()
	if total > 0 {
		for _, b := range Canonical {
			v, _ := est.Power.Get(b.Name)
			est.Relative.Set(b.Name, v/total)
		}
	} else {
		est.issue("relative", -1, errZeroTotal)
	}

	return est, nil
}

// member returns the band membership predicate for b.
func (e *Estimator) member(b Band) func(f float64) bool {
	if e.halfOpen {
		return func(f float64) bool { return f >= b.Low && f < b.High }
	}
	return func(f float64) bool { return f >= b.Low && f <= b.High }
}

// restrict keeps only bins inside the analysis range.
func (e *Estimator) restrict(p spectrum.PSD) spectrum.PSD {
	lo, hi := -1, -1
	for i, f := range p.Freqs {
		if f < e.minHz || f > e.maxHz {
			continue
		}
		if lo < 0 {
			lo = i
		}
		hi = i + 1
	}
	if lo < 0 {
		lo, hi = 0, 0
	}
	out := p
	out.Freqs = p.Freqs[lo:hi]
	out.Density = p.Density[lo:hi]
	return out
}

func (e *Estimator) sanitize(est *Estimate) {
	for _, b := range Canonical {
		v, _ := est.Power.Get(b.Name)
		if !core.Finite(v) || v < 0 {
			est.Power.Set(b.Name, 0)
			est.issue("band "+b.Name, -1, fmt.Errorf("%w: %v", errNonFinite, v))
		}
	}
}
