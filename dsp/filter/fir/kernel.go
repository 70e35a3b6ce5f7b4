package fir

import (
	"math"
	"math/cmplx"
)

// Kernel is an immutable set of FIR coefficients.
type Kernel struct {
	coeffs []float64
}

// NewKernel creates a kernel from the given coefficient slice.
// The coefficients are copied.
func NewKernel(coeffs []float64) *Kernel {
	c := make([]float64, len(coeffs))
	copy(c, coeffs)
	return &Kernel{coeffs: c}
}

// Len returns the number of taps.
func (k *Kernel) Len() int {
	return len(k.coeffs)
}

// Order returns the filter order (Len() - 1).
func (k *Kernel) Order() int {
	return len(k.coeffs) - 1
}

// Coefficients returns a copy of the kernel coefficients.
func (k *Kernel) Coefficients() []float64 {
	c := make([]float64, len(k.coeffs))
	copy(c, k.coeffs)
	return c
}

// IsSymmetric reports whether h[n] == h[N-1-n] within tol for all n.
func (k *Kernel) IsSymmetric(tol float64) bool {
	n := len(k.coeffs)
	for i := 0; i < n/2; i++ {
		if math.Abs(k.coeffs[i]-k.coeffs[n-1-i]) > tol {
			return false
		}
	}
	return true
}

// GroupDelay returns the group delay in samples of a linear-phase kernel.
func (k *Kernel) GroupDelay() float64 {
	return float64(len(k.coeffs)-1) / 2
}

// Response computes the complex frequency response H(e^{jw}) at the given
// frequency (Hz) and sample rate (Hz).
func (k *Kernel) Response(freqHz, sampleRate float64) complex128 {
	w := 2 * math.Pi * freqHz / sampleRate
	var h complex128
	for n, c := range k.coeffs {
		h += complex(c, 0) * cmplx.Exp(complex(0, -w*float64(n)))
	}
	return h
}

// Magnitude returns |H| at the given frequency.
func (k *Kernel) Magnitude(freqHz, sampleRate float64) float64 {
	return cmplx.Abs(k.Response(freqHz, sampleRate))
}

// MagnitudeDB returns the magnitude response in dB at the given frequency.
func (k *Kernel) MagnitudeDB(freqHz, sampleRate float64) float64 {
	return 20 * math.Log10(k.Magnitude(freqHz, sampleRate))
}
