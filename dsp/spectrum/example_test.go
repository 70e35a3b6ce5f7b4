package spectrum_test

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-eeg/dsp/spectrum"
)

func ExampleToneAmplitude() {
	const fs = 256.0
	x := make([]float64, 512)
	for i := range x {
		x[i] = 0.4 * math.Sin(2*math.Pi*50*float64(i)/fs)
	}
	amp, _ := spectrum.ToneAmplitude(x, 50, fs)
	fmt.Printf("%.2f\n", amp)
	// Output:
	// 0.40
}

func ExampleWelch() {
	const fs = 256.0
	x := make([]float64, 10*256)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * 10 * float64(i) / fs)
	}

	w, _ := spectrum.NewWelch(fs)
	psd, _ := w.Estimate(x)
	peak, _ := spectrum.PeakFrequency(psd, 0.5, 40)

	fmt.Printf("bins=%d df=%.1f Hz peak=%.1f Hz\n", len(psd.Freqs), psd.Resolution(), peak)
	// Output:
	// bins=129 df=1.0 Hz peak=10.0 Hz
}
