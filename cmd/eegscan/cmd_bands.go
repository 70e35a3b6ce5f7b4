package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-eeg/eeg/bands"
	"github.com/cwbudde/algo-eeg/eeg/source"
)

var bandsFlags struct {
	output   string
	spectrum bool
	window   []float64
	channels []string
}

var bandsCmd = &cobra.Command{
	Use:   "bands <file.edf>",
	Short: "Print band powers of one recording without running a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runBands,
}

func init() {
	f := bandsCmd.Flags()
	f.StringVarP(&bandsFlags.output, "output", "o", formatTable, "Output format: table, json or yaml")
	f.BoolVar(&bandsFlags.spectrum, "spectrum", false, "Also print the averaged PSD")
	f.Float64SliceVar(&bandsFlags.window, "window", nil, "Analyze only start,duration seconds")
	f.StringSliceVar(&bandsFlags.channels, "channels", nil, "Analyze only these channels")
}

type bandRow struct {
	Band     string  `json:"band" yaml:"band"`
	LowHz    float64 `json:"low_hz" yaml:"low_hz"`
	HighHz   float64 `json:"high_hz" yaml:"high_hz"`
	Power    float64 `json:"power" yaml:"power"`
	Relative float64 `json:"relative" yaml:"relative"`
}

type bandsReport struct {
	File              string    `json:"file" yaml:"file"`
	Channels          []string  `json:"channels" yaml:"channels"`
	SampleRate        float64   `json:"sampling_rate" yaml:"sampling_rate"`
	Bands             []bandRow `json:"bands" yaml:"bands"`
	DominantFrequency float64   `json:"dominant_frequency" yaml:"dominant_frequency"`
	Resolution        float64   `json:"resolution_hz" yaml:"resolution_hz"`
	Segments          int       `json:"segments" yaml:"segments"`
	NotchFrequencies  []float64 `json:"notch_frequencies" yaml:"notch_frequencies"`
	Issues            []string  `json:"issues,omitempty" yaml:"issues,omitempty"`
	Freqs             []float64 `json:"freqs,omitempty" yaml:"freqs,omitempty"`
	Density           []float64 `json:"density,omitempty" yaml:"density,omitempty"`
}

func runBands(cmd *cobra.Command, args []string) error {
	if err := checkFormat(bandsFlags.output); err != nil {
		return err
	}
	raw, err := source.EDF{Path: args[0]}.Read(cmd.Context())
	if err != nil {
		return err
	}
	if len(bandsFlags.window) > 0 || len(bandsFlags.channels) > 0 {
		start, dur := 0.0, raw.Duration()
		switch len(bandsFlags.window) {
		case 0:
		case 2:
			start, dur = bandsFlags.window[0], bandsFlags.window[1]
		default:
			return fmt.Errorf("--window wants start,duration")
		}
		if raw, err = raw.Window(start, dur, bandsFlags.channels...); err != nil {
			return err
		}
	}

	conditioner, err := cfg.Conditioner()
	if err != nil {
		return err
	}
	estimator, err := cfg.Estimator()
	if err != nil {
		return err
	}
	cond, err := conditioner.Condition(raw)
	if err != nil {
		return err
	}
	est, err := estimator.Estimate(cond)
	if err != nil {
		return err
	}

	rep := bandsReport{
		File:              args[0],
		Channels:          raw.Channels(),
		SampleRate:        raw.SampleRate(),
		DominantFrequency: est.DominantFrequency,
		Resolution:        est.Resolution,
		Segments:          est.Segments,
		NotchFrequencies:  cond.Report.NotchFrequencies,
	}
	for _, b := range bands.Canonical {
		p, _ := est.Power.Get(b.Name)
		r, _ := est.Relative.Get(b.Name)
		rep.Bands = append(rep.Bands, bandRow{Band: b.Name, LowHz: b.Low, HighHz: b.High, Power: p, Relative: r})
	}
	for _, issue := range est.Issues {
		rep.Issues = append(rep.Issues, issue.Error())
	}
	if bandsFlags.spectrum {
		rep.Freqs = est.Spectrum.Freqs
		rep.Density = est.Spectrum.Density
	}

	return emit(cmd.OutOrStdout(), bandsFlags.output, rep, func() string {
		return bandsTable(rep)
	})
}

func bandsTable(rep bandsReport) string {
	t := newTable("Band", "Range Hz", "Power", "Relative")
	alignRight(t, 3, 4)
	for _, b := range rep.Bands {
		t.AppendRow([]any{b.Band, fmt.Sprintf("%g-%g", b.LowHz, b.HighHz), f2(b.Power), fmt.Sprintf("%.1f%%", 100*b.Relative)})
	}

	var sb strings.Builder
	sb.WriteString(t.Render())
	fmt.Fprintf(&sb, "\nchannels=%d fs=%g Hz peak=%.1f Hz df=%.2f Hz segments=%d notch=%v",
		len(rep.Channels), rep.SampleRate, rep.DominantFrequency, rep.Resolution, rep.Segments, rep.NotchFrequencies)
	for _, issue := range rep.Issues {
		sb.WriteString("\nwarning: " + issue)
	}
	if len(rep.Freqs) > 0 {
		s := newTable("Hz", "PSD")
		alignRight(s, 1, 2)
		for i, f := range rep.Freqs {
			s.AppendRow([]any{fmt.Sprintf("%.2f", f), fmt.Sprintf("%.4g", rep.Density[i])})
		}
		sb.WriteString("\n" + s.Render())
	}
	return sb.String()
}
