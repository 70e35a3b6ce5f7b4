package fir

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-eeg/dsp/conv"
)

var (
	// ErrSignalTooShort is returned when the signal is shorter than the kernel.
	ErrSignalTooShort = errors.New("fir: signal shorter than kernel")
	// ErrNotLinearPhase is returned for kernels that are not odd and symmetric.
	ErrNotLinearPhase = errors.New("fir: kernel must be odd-length and symmetric")
)

// ZeroPhase applies a linear-phase kernel and removes its group delay, so the
// output has no time shift relative to the input.
//
// The signal is extended at both ends by odd reflection before filtering to
// limit edge transients; the extension is cropped from the output.
//
// A ZeroPhase is not safe for concurrent use; Clone it per goroutine.
type ZeroPhase struct {
	kernel *Kernel
	conv   *conv.Convolver
}

// NewZeroPhase prepares k for zero-phase application.
func NewZeroPhase(k *Kernel) (*ZeroPhase, error) {
	if k == nil || k.Len()%2 == 0 || !k.IsSymmetric(1e-12) {
		return nil, ErrNotLinearPhase
	}
	c, err := conv.New(k.coeffs, 0)
	if err != nil {
		return nil, fmt.Errorf("fir: %w", err)
	}
	return &ZeroPhase{kernel: k, conv: c}, nil
}

// Kernel returns the underlying kernel.
func (z *ZeroPhase) Kernel() *Kernel {
	return z.kernel
}

// Clone returns an independent ZeroPhase sharing the kernel spectrum.
func (z *ZeroPhase) Clone() (*ZeroPhase, error) {
	c, err := z.conv.Clone()
	if err != nil {
		return nil, fmt.Errorf("fir: %w", err)
	}
	return &ZeroPhase{kernel: z.kernel, conv: c}, nil
}

// Apply filters x and returns a new slice of the same length. x is not
// modified.
func (z *ZeroPhase) Apply(x []float64) ([]float64, error) {
	n := len(x)
	if n < z.kernel.Len() {
		return nil, fmt.Errorf("%w: %d samples < %d taps", ErrSignalTooShort, n, z.kernel.Len())
	}

	pad := min(z.kernel.Len()-1, n-1)
	padded := oddExtend(x, pad)

	same, err := z.conv.Centred(padded)
	if err != nil {
		return nil, fmt.Errorf("fir: %w", err)
	}

	out := make([]float64, n)
	copy(out, same[pad:pad+n])
	return out, nil
}

// oddExtend extends x at both ends by point reflection about its first and
// last samples, which keeps the value and slope continuous at the seams.
// pad must be < len(x).
func oddExtend(x []float64, pad int) []float64 {
	n := len(x)
	first, last := x[0], x[n-1]
	out := make([]float64, n+2*pad)
	for i := 0; i < pad; i++ {
		out[pad-1-i] = 2*first - x[i+1]
		out[pad+n+i] = 2*last - x[n-2-i]
	}
	copy(out[pad:], x)
	return out
}
