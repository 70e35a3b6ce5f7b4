// Package condition removes line noise and restricts recordings to the
// clinical EEG band before spectral analysis.
//
// Both stages are linear-phase windowed-sinc FIR filters applied with their
// group delay removed, so conditioned channels stay aligned with the input.
package condition

import (
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-eeg/dsp/spectrum"
	"github.com/cwbudde/algo-eeg/dsp/window"
	"github.com/cwbudde/algo-eeg/eeg"
)

// Defaults for the clinical conditioning chain.
const (
	DefaultLineFrequency = 50.0
	DefaultMaxHarmonic   = 250.0
	DefaultLowCut        = 0.5
	DefaultHighCut       = 70.0

	// notchTransition is the transition bandwidth of each notch edge in Hz.
	notchTransition = 1.0
	// notchWidthDivisor sets each notch stop band to f/200 Hz.
	notchWidthDivisor = 200.0
)

// Option configures a Conditioner.
type Option func(*Conditioner)

// WithLineFrequency sets the mains frequency whose harmonics are notched.
// Zero disables the notch stage.
func WithLineFrequency(hz float64) Option {
	return func(c *Conditioner) { c.lineHz = hz }
}

// WithMaxHarmonic sets the highest harmonic frequency to notch.
func WithMaxHarmonic(hz float64) Option {
	return func(c *Conditioner) { c.maxHarmonic = hz }
}

// WithPassband sets the band-pass cut-off frequencies in Hz.
func WithPassband(lowHz, highHz float64) Option {
	return func(c *Conditioner) {
		c.lowHz = lowHz
		c.highHz = highHz
	}
}

// WithWindow selects the design window for every kernel.
func WithWindow(t window.Type) Option {
	return func(c *Conditioner) { c.window = t }
}

// WithParallelism filters up to n channels concurrently. Values below 2 keep
// filtering sequential.
func WithParallelism(n int) Option {
	return func(c *Conditioner) { c.parallelism = n }
}

// Conditioner applies notch and band-pass filtering to raw recordings.
// It is safe for concurrent use; designed kernels are cached per sample rate.
type Conditioner struct {
	lineHz      float64
	maxHarmonic float64
	lowHz       float64
	highHz      float64
	window      window.Type
	parallelism int

	mu     sync.Mutex
	chains map[float64]*chain
}

// New returns a Conditioner with the clinical defaults: 50 Hz notches up to
// 250 Hz and a 0.5-70 Hz Hamming-windowed band-pass.
func New(opts ...Option) (*Conditioner, error) {
	c := &Conditioner{
		lineHz:      DefaultLineFrequency,
		maxHarmonic: DefaultMaxHarmonic,
		lowHz:       DefaultLowCut,
		highHz:      DefaultHighCut,
		window:      window.TypeHamming,
		parallelism: 1,
		chains:      make(map[float64]*chain),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.lineHz < 0 || math.IsNaN(c.lineHz) {
		return nil, fmt.Errorf("condition: line frequency must be >= 0: %v", c.lineHz)
	}
	if !(c.lowHz > 0) || !(c.highHz > c.lowHz) {
		return nil, fmt.Errorf("condition: invalid passband %v-%v Hz", c.lowHz, c.highHz)
	}
	return c, nil
}

// Condition filters every channel of raw and returns a new signal with the
// same channels and sampling rate. raw is not modified.
func (c *Conditioner) Condition(raw eeg.RawSignal) (eeg.ConditionedSignal, error) {
	if raw.NumChannels() == 0 {
		return eeg.ConditionedSignal{}, &eeg.InvalidChannelError{Reason: "recording has no channels"}
	}

	ch, err := c.chainFor(raw.SampleRate())
	if err != nil {
		return eeg.ConditionedSignal{}, err
	}
	report := ch.report
	if n := raw.NumSamples(); n < report.RequiredSamples() {
		return eeg.ConditionedSignal{}, &eeg.SignalTooShortError{Samples: n, Required: report.RequiredSamples()}
	}

	out := make([][]float64, raw.NumChannels())
	before := make([]float64, len(out))
	after := make([]float64, len(out))

	filterRow := func(i int, st *stages) error {
		row := raw.Row(i)
		if c.trackLine(raw.SampleRate()) {
			before[i], _ = spectrum.ToneAmplitude(row, c.lineHz, raw.SampleRate())
		}
		y, err := st.apply(row)
		if err != nil {
			return fmt.Errorf("condition: channel %d: %w", i, err)
		}
		if c.trackLine(raw.SampleRate()) {
			after[i], _ = spectrum.ToneAmplitude(y, c.lineHz, raw.SampleRate())
		}
		out[i] = y
		return nil
	}

	if c.parallelism < 2 || len(out) < 2 {
		st, err := ch.proto.clone()
		if err != nil {
			return eeg.ConditionedSignal{}, err
		}
		for i := range out {
			if err := filterRow(i, st); err != nil {
				return eeg.ConditionedSignal{}, err
			}
		}
	} else {
		var g errgroup.Group
		g.SetLimit(c.parallelism)
		for i := range out {
			g.Go(recovered(i, func() error {
				st, err := ch.proto.clone()
				if err != nil {
					return err
				}
				return filterRow(i, st)
			}))
		}
		if err := g.Wait(); err != nil {
			return eeg.ConditionedSignal{}, err
		}
	}

	report.LineAmplitudeBefore = mean(before)
	report.LineAmplitudeAfter = mean(after)

	sig, err := eeg.NewRawSignal(raw.Channels(), out, raw.SampleRate())
	if err != nil {
		return eeg.ConditionedSignal{}, fmt.Errorf("condition: %w", err)
	}
	return eeg.ConditionedSignal{RawSignal: sig, Report: report}, nil
}

// Plan returns the conditioning report for a sample rate without filtering
// anything. It is useful to check the minimum recording length up front.
func (c *Conditioner) Plan(sampleRate float64) (eeg.ConditionReport, error) {
	ch, err := c.chainFor(sampleRate)
	if err != nil {
		return eeg.ConditionReport{}, err
	}
	return ch.report, nil
}

func (c *Conditioner) trackLine(sampleRate float64) bool {
	return c.lineHz > 0 && c.lineHz < sampleRate/2
}

func (c *Conditioner) chainFor(sampleRate float64) (*chain, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.chains[sampleRate]; ok {
		return ch, nil
	}
	ch, err := c.design(sampleRate)
	if err != nil {
		return nil, err
	}
	c.chains[sampleRate] = ch
	return ch, nil
}

// chain is the designed filter cascade for one sample rate. proto is never
// run directly; every Condition call filters with its own clone.
type chain struct {
	report eeg.ConditionReport
	proto  *stages
}

// recovered returns fn with a panic in it turned into an error for channel i.
// Worker goroutines are out of reach of the caller's recover.
func recovered(i int, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("condition: channel %d: panic: %v", i, r)
			}
		}()
		return fn()
	}
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	s := 0.0
	for _, v := range x {
		s += v
	}
	return s / float64(len(x))
}
