package eeg

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/cwbudde/algo-eeg/dsp/core"
)

// Source provides one multichannel recording. Read is called at most once per
// analysis job.
type Source interface {
	Read(ctx context.Context) (RawSignal, error)
}

// RawSignal is an immutable multichannel recording: ordered unique channel
// names, one row of samples per channel and a single sampling rate.
//
// The zero value has no channels and is not valid input to the pipeline.
type RawSignal struct {
	channels   []string
	data       [][]float64
	sampleRate float64
}

// NewRawSignal validates and deep-copies its arguments into a RawSignal.
// Every row must have the same length.
func NewRawSignal(channels []string, data [][]float64, sampleRate float64) (RawSignal, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return RawSignal{}, fmt.Errorf("%w: sample rate must be > 0: %v", ErrInvalidSignal, sampleRate)
	}
	if len(channels) != len(data) {
		return RawSignal{}, fmt.Errorf("%w: %d channel names for %d rows", ErrInvalidSignal, len(channels), len(data))
	}

	seen := make(map[string]struct{}, len(channels))
	for _, name := range channels {
		if name == "" {
			return RawSignal{}, &InvalidChannelError{Reason: "empty channel name"}
		}
		if _, dup := seen[name]; dup {
			return RawSignal{}, &InvalidChannelError{Channel: name, Reason: "duplicate channel name"}
		}
		seen[name] = struct{}{}
	}

	rows := make([][]float64, len(data))
	for i, row := range data {
		if len(row) != len(data[0]) {
			return RawSignal{}, fmt.Errorf("%w: channel %q has %d samples, want %d",
				ErrInvalidSignal, channels[i], len(row), len(data[0]))
		}
		rows[i] = slices.Clone(row)
	}

	return RawSignal{
		channels:   slices.Clone(channels),
		data:       rows,
		sampleRate: sampleRate,
	}, nil
}

// Channels returns a copy of the channel names in order.
func (s RawSignal) Channels() []string { return slices.Clone(s.channels) }

// NumChannels returns the channel count.
func (s RawSignal) NumChannels() int { return len(s.channels) }

// NumSamples returns the per-channel sample count.
func (s RawSignal) NumSamples() int {
	if len(s.data) == 0 {
		return 0
	}
	return len(s.data[0])
}

// SampleRate returns the sampling rate in Hz.
func (s RawSignal) SampleRate() float64 { return s.sampleRate }

// Duration returns the recording length in seconds (samples / rate).
func (s RawSignal) Duration() float64 {
	if s.sampleRate <= 0 {
		return 0
	}
	return float64(s.NumSamples()) / s.sampleRate
}

// Row returns the samples of channel i. The slice aliases the signal and must
// not be modified.
func (s RawSignal) Row(i int) []float64 { return s.data[i] }

// Data returns a deep copy of the sample matrix.
func (s RawSignal) Data() [][]float64 {
	out := make([][]float64, len(s.data))
	for i, row := range s.data {
		out[i] = slices.Clone(row)
	}
	return out
}

// Index returns the row index of the named channel, or -1.
func (s RawSignal) Index(name string) int {
	return slices.Index(s.channels, name)
}

// Window extracts [startSec, startSec+durSec) for the given channels, or for
// all channels when none are named. Channels keep recording order. The range
// is clamped to the recording.
func (s RawSignal) Window(startSec, durSec float64, channels ...string) (RawSignal, error) {
	if startSec < 0 || durSec < 0 || math.IsNaN(startSec) || math.IsNaN(durSec) {
		return RawSignal{}, fmt.Errorf("%w: window start %v duration %v", ErrInvalidSignal, startSec, durSec)
	}

	keep := make([]bool, len(s.channels))
	if len(channels) == 0 {
		for i := range keep {
			keep[i] = true
		}
	}
	for _, name := range channels {
		i := s.Index(name)
		if i < 0 {
			return RawSignal{}, &InvalidChannelError{Channel: name, Reason: "not in recording"}
		}
		keep[i] = true
	}

	n := s.NumSamples()
	lo := min(int(startSec*s.sampleRate), n)
	hi := min(int((startSec+durSec)*s.sampleRate), n)

	var names []string
	var rows [][]float64
	for i, ok := range keep {
		if !ok {
			continue
		}
		names = append(names, s.channels[i])
		rows = append(rows, s.data[i][lo:hi])
	}
	return NewRawSignal(names, rows, s.sampleRate)
}

// ConditionReport describes the filtering applied to a recording.
type ConditionReport struct {
	// NotchFrequencies lists the line-noise harmonics that were suppressed.
	NotchFrequencies []float64 `json:"notch_frequencies"`
	NotchTaps        int       `json:"notch_taps"`

	HighpassHz    float64 `json:"highpass_hz"`
	LowpassHz     float64 `json:"lowpass_hz"`
	BandpassTaps  int     `json:"bandpass_taps"`
	LowpassActive bool    `json:"lowpass_active"`

	// LineAmplitudeBefore and LineAmplitudeAfter are the mean per-channel
	// amplitudes at the line frequency around the notch stage.
	LineAmplitudeBefore float64 `json:"line_amplitude_before"`
	LineAmplitudeAfter  float64 `json:"line_amplitude_after"`
}

// RequiredSamples returns the longest kernel applied, which is the minimum
// recording length.
func (r ConditionReport) RequiredSamples() int {
	return max(r.NotchTaps, r.BandpassTaps)
}

// LineRejectionDB is the attenuation at the line frequency across the notch
// stage. It is NaN when no line amplitude was measured.
func (r ConditionReport) LineRejectionDB() float64 {
	if !(r.LineAmplitudeBefore > 0) {
		return math.NaN()
	}
	return -core.AmplitudeToDB(r.LineAmplitudeAfter / r.LineAmplitudeBefore)
}

// ConditionedSignal is a RawSignal after notch and band-pass filtering.
type ConditionedSignal struct {
	RawSignal
	Report ConditionReport
}
