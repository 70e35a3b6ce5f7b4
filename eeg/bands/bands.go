// Package bands estimates per-channel power spectral density with Welch's
// method and aggregates it into the canonical EEG bands.
//
// Channels are averaged with equal weight. That assumes channel-agnostic
// banding, which suits a whole-head screening summary but is not a universal
// clinical convention; [AverageBands] is offered as the alternative order.
package bands

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-eeg/dsp/spectrum"
	"github.com/cwbudde/algo-eeg/eeg"
)

// Power maps each canonical band to its mean PSD.
type Power = eeg.BandPowers

// Band is a named frequency range in Hz.
type Band struct {
	Name string
	Low  float64
	High float64
}

// Canonical lists the analyzed bands in ascending order.
var Canonical = []Band{
	{Name: eeg.BandDelta, Low: 0.5, High: 4},
	{Name: eeg.BandTheta, Low: 4, High: 8},
	{Name: eeg.BandAlpha, Low: 8, High: 13},
	{Name: eeg.BandBeta, Low: 13, High: 30},
}

// ChannelPolicy selects the order of channel averaging and band slicing.
type ChannelPolicy int

const (
	// AverageSpectra averages channel PSDs bin by bin, then slices bands.
	AverageSpectra ChannelPolicy = iota
	// AverageBands slices bands per channel, then averages channel values.
	AverageBands
)

// String returns the policy name used in configuration.
func (p ChannelPolicy) String() string {
	switch p {
	case AverageSpectra:
		return "average-spectra"
	case AverageBands:
		return "average-bands"
	default:
		return fmt.Sprintf("ChannelPolicy(%d)", int(p))
	}
}

// ParseChannelPolicy parses the String form of a policy.
func ParseChannelPolicy(s string) (ChannelPolicy, error) {
	switch s {
	case "average-spectra", "":
		return AverageSpectra, nil
	case "average-bands":
		return AverageBands, nil
	}
	return 0, fmt.Errorf("bands: unknown channel policy %q", s)
}

var (
	errZeroTotal  = errors.New("total band power is zero")
	errNonFinite  = errors.New("non-finite band power")
	errShortInput = errors.New("signal shorter than segment, using whole signal")
)

// Estimate is the spectral summary of one conditioned recording.
type Estimate struct {
	Power    Power
	Relative Power

	// DominantFrequency is the peak of the channel-averaged PSD within the
	// analyzed range, or 0 when the spectrum is flat zero.
	DominantFrequency float64

	Resolution float64
	Segments   int

	// Spectrum is the channel-averaged PSD restricted to the analyzed range.
	Spectrum spectrum.PSD

	// Issues lists recovered numerical problems. Values affected by an issue
	// have been replaced with 0.
	Issues []*eeg.EstimationError
}

func (e *Estimate) issue(stage string, ch int, err error) {
	e.Issues = append(e.Issues, &eeg.EstimationError{Stage: stage, Channel: ch, Err: err})
}
