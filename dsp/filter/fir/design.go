package fir

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-eeg/dsp/window"
)

// lengthFactor is the taps-per-transition factor for a Hamming-windowed
// design (about 53 dB stop-band attenuation).
const lengthFactor = 3.3

var (
	ErrInvalidCutoff     = errors.New("fir: cutoff must lie strictly between 0 and Nyquist")
	ErrInvalidLength     = errors.New("fir: kernel length must be odd and >= 3")
	ErrInvalidSampleRate = errors.New("fir: sample rate must be > 0")
	ErrInvalidTransition = errors.New("fir: transition bandwidth must be > 0")
)

// Band is a stop band given by its two cutoff frequencies in Hz.
type Band struct {
	Low  float64
	High float64
}

// AutoLength returns the odd kernel length needed for the given transition
// bandwidth: round(3.3 * fs / transition), forced odd.
func AutoLength(transitionHz, sampleRate float64) (int, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) {
		return 0, ErrInvalidSampleRate
	}
	if transitionHz <= 0 || math.IsNaN(transitionHz) {
		return 0, fmt.Errorf("%w: %g", ErrInvalidTransition, transitionHz)
	}
	n := max(int(math.Round(lengthFactor*sampleRate/transitionHz)), 3)
	if n%2 == 0 {
		n++
	}
	return n, nil
}

// Lowpass designs a windowed-sinc low-pass kernel with unity DC gain.
func Lowpass(cutoffHz, sampleRate float64, taps int, win window.Type) (*Kernel, error) {
	h, err := lowpassCoeffs(cutoffHz, sampleRate, taps, win)
	if err != nil {
		return nil, err
	}
	return &Kernel{coeffs: h}, nil
}

// Highpass designs a windowed-sinc high-pass kernel by spectral inversion of
// the matching low-pass.
func Highpass(cutoffHz, sampleRate float64, taps int, win window.Type) (*Kernel, error) {
	h, err := lowpassCoeffs(cutoffHz, sampleRate, taps, win)
	if err != nil {
		return nil, err
	}
	invert(h)
	return &Kernel{coeffs: h}, nil
}

// Bandpass designs a band-pass kernel as the difference of two low-pass
// prototypes at lowHz and highHz.
func Bandpass(lowHz, highHz, sampleRate float64, taps int, win window.Type) (*Kernel, error) {
	if lowHz >= highHz {
		return nil, fmt.Errorf("%w: low %g >= high %g", ErrInvalidCutoff, lowHz, highHz)
	}
	h, err := bandCoeffs(lowHz, highHz, sampleRate, taps, win)
	if err != nil {
		return nil, err
	}
	return &Kernel{coeffs: h}, nil
}

// Bandstop designs a kernel rejecting every band in bands and passing the
// rest of the spectrum with unity gain.
func Bandstop(bands []Band, sampleRate float64, taps int, win window.Type) (*Kernel, error) {
	if len(bands) == 0 {
		return nil, errors.New("fir: band-stop requires at least one band")
	}

	acc := make([]float64, taps)
	for _, b := range bands {
		if b.Low >= b.High {
			return nil, fmt.Errorf("%w: low %g >= high %g", ErrInvalidCutoff, b.Low, b.High)
		}
		h, err := bandCoeffs(b.Low, b.High, sampleRate, taps, win)
		if err != nil {
			return nil, err
		}
		for i := range acc {
			acc[i] += h[i]
		}
	}
	invert(acc)
	return &Kernel{coeffs: acc}, nil
}

func bandCoeffs(lowHz, highHz, sampleRate float64, taps int, win window.Type) ([]float64, error) {
	hi, err := lowpassCoeffs(highHz, sampleRate, taps, win)
	if err != nil {
		return nil, err
	}
	lo, err := lowpassCoeffs(lowHz, sampleRate, taps, win)
	if err != nil {
		return nil, err
	}
	for i := range hi {
		hi[i] -= lo[i]
	}
	return hi, nil
}

func lowpassCoeffs(cutoffHz, sampleRate float64, taps int, win window.Type) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if taps < 3 || taps%2 == 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, taps)
	}
	if cutoffHz <= 0 || cutoffHz >= sampleRate/2 {
		return nil, fmt.Errorf("%w: %g Hz at fs=%g", ErrInvalidCutoff, cutoffHz, sampleRate)
	}

	fc := cutoffHz / sampleRate // cycles per sample
	mid := (taps - 1) / 2
	w := window.Generate(win, taps)

	h := make([]float64, taps)
	sum := 0.0
	for n := range h {
		h[n] = 2 * fc * sinc(2*fc*float64(n-mid)) * w[n]
		sum += h[n]
	}
	for n := range h {
		h[n] /= sum
	}
	return h, nil
}

// invert turns a unity-DC low-pass into the complementary high-pass:
// h = delta - h.
func invert(h []float64) {
	for i := range h {
		h[i] = -h[i]
	}
	h[len(h)/2] += 1
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}
