package condition

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-eeg/dsp/filter/fir"
	"github.com/cwbudde/algo-eeg/eeg"
)

// stages holds the zero-phase filters for one worker. notch is nil when no
// harmonic lies below Nyquist.
type stages struct {
	notch    *fir.ZeroPhase
	bandpass *fir.ZeroPhase
}

func (s *stages) apply(x []float64) ([]float64, error) {
	y := x
	if s.notch != nil {
		var err error
		if y, err = s.notch.Apply(y); err != nil {
			return nil, err
		}
	}
	return s.bandpass.Apply(y)
}

func (s *stages) clone() (*stages, error) {
	out := &stages{}
	var err error
	if s.notch != nil {
		if out.notch, err = s.notch.Clone(); err != nil {
			return nil, err
		}
	}
	if out.bandpass, err = s.bandpass.Clone(); err != nil {
		return nil, err
	}
	return out, nil
}

// design builds the notch and band-pass kernels for sampleRate.
//
// Notches sit at every multiple of the line frequency up to the harmonic
// ceiling whose stop band fits below Nyquist. Each is f/200 Hz wide with 1 Hz
// transitions; all share one band-stop kernel.
//
// Band-pass transition widths: low min(max(0.25*lo, 2), lo), high
// min(max(0.25*hi, 2), nyquist-hi). Cut-offs sit at the middle of each
// transition and the kernel length follows the narrower one. When hi is at or
// above Nyquist only the high-pass runs.
func (c *Conditioner) design(sampleRate float64) (*chain, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("condition: %w: sample rate %v", eeg.ErrInvalidSignal, sampleRate)
	}
	nyquist := sampleRate / 2
	if c.lowHz >= nyquist {
		return nil, fmt.Errorf("condition: low cut %v Hz at or above Nyquist %v Hz", c.lowHz, nyquist)
	}

	var (
		report eeg.ConditionReport
		st     stages
	)

	if c.lineHz > 0 {
		var bands []fir.Band
		for f := c.lineHz; f <= c.maxHarmonic+1e-9; f += c.lineHz {
			edge := f/notchWidthDivisor/2 + notchTransition/2
			if f+edge >= nyquist {
				break
			}
			bands = append(bands, fir.Band{Low: f - edge, High: f + edge})
			report.NotchFrequencies = append(report.NotchFrequencies, f)
		}
		if len(bands) > 0 {
			taps, err := fir.AutoLength(notchTransition, sampleRate)
			if err != nil {
				return nil, fmt.Errorf("condition: notch length: %w", err)
			}
			k, err := fir.Bandstop(bands, sampleRate, taps, c.window)
			if err != nil {
				return nil, fmt.Errorf("condition: notch design: %w", err)
			}
			if st.notch, err = fir.NewZeroPhase(k); err != nil {
				return nil, fmt.Errorf("condition: notch: %w", err)
			}
			report.NotchTaps = taps
		}
	}

	lowTrans := math.Min(math.Max(0.25*c.lowHz, 2), c.lowHz)
	report.HighpassHz = c.lowHz - lowTrans/2
	trans := lowTrans

	report.LowpassActive = c.highHz < nyquist
	if report.LowpassActive {
		highTrans := math.Min(math.Max(0.25*c.highHz, 2), nyquist-c.highHz)
		report.LowpassHz = c.highHz + highTrans/2
		trans = math.Min(trans, highTrans)
	}

	taps, err := fir.AutoLength(trans, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("condition: band-pass length: %w", err)
	}
	var k *fir.Kernel
	if report.LowpassActive {
		k, err = fir.Bandpass(report.HighpassHz, report.LowpassHz, sampleRate, taps, c.window)
	} else {
		k, err = fir.Highpass(report.HighpassHz, sampleRate, taps, c.window)
	}
	if err != nil {
		return nil, fmt.Errorf("condition: band-pass design: %w", err)
	}
	if st.bandpass, err = fir.NewZeroPhase(k); err != nil {
		return nil, fmt.Errorf("condition: band-pass: %w", err)
	}
	report.BandpassTaps = taps

	return &chain{report: report, proto: &st}, nil
}
