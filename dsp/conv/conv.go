// Package conv convolves recordings with fixed FIR kernels.
//
// Direct is the plain time-domain sum and serves as a reference. Convolver
// transforms the kernel once and filters arbitrarily long inputs by FFT
// overlap-add, which is what the conditioning filters use for multi-minute
// recordings.
package conv

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

var (
	ErrEmptyInput  = errors.New("conv: empty input")
	ErrEmptyKernel = errors.New("conv: empty kernel")
)

// minBlock is the smallest input block a Convolver processes per FFT.
const minBlock = 256

// Direct returns the full linear convolution of x and h, of length
// len(x)+len(h)-1.
func Direct(x, h []float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, ErrEmptyInput
	}
	if len(h) == 0 {
		return nil, ErrEmptyKernel
	}
	out := make([]float64, len(x)+len(h)-1)
	row := make([]float64, len(h))
	for i, v := range x {
		if v == 0 {
			continue
		}
		vecmath.ScaleBlock(row, h, v)
		vecmath.AddBlockInPlace(out[i:i+len(h)], row)
	}
	return out, nil
}

// Convolver filters signals with one kernel by overlap-add. It keeps scratch
// space and is not safe for concurrent use; Clone shares the kernel spectrum
// with a fresh plan and scratch buffer.
type Convolver struct {
	spectrum []complex128 // kernel FFT, read-only once built
	taps     int
	block    int

	plan    *algofft.Plan[complex128]
	scratch []complex128
}

// New transforms kernel for repeated use. block is the number of input
// samples per FFT; 0 picks one from the kernel length.
func New(kernel []float64, block int) (*Convolver, error) {
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}
	if block < 0 {
		return nil, fmt.Errorf("conv: negative block size %d", block)
	}
	if block == 0 {
		block = max(pow2(len(kernel)), minBlock)
	}

	c := &Convolver{taps: len(kernel), block: block}
	if err := c.reset(pow2(block + len(kernel) - 1)); err != nil {
		return nil, err
	}
	c.spectrum = make([]complex128, len(c.scratch))
	for i, v := range kernel {
		c.scratch[i] = complex(v, 0)
	}
	if err := c.plan.Forward(c.spectrum, c.scratch); err != nil {
		return nil, fmt.Errorf("conv: kernel transform: %w", err)
	}
	return c, nil
}

func (c *Convolver) reset(size int) error {
	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return fmt.Errorf("conv: plan for %d points: %w", size, err)
	}
	c.plan = plan
	c.scratch = make([]complex128, size)
	return nil
}

// Clone returns an independent Convolver for another goroutine.
func (c *Convolver) Clone() (*Convolver, error) {
	cp := &Convolver{spectrum: c.spectrum, taps: c.taps, block: c.block}
	if err := cp.reset(len(c.spectrum)); err != nil {
		return nil, err
	}
	return cp, nil
}

// Taps returns the kernel length.
func (c *Convolver) Taps() int { return c.taps }

// Block returns the input block size.
func (c *Convolver) Block() int { return c.block }

// Full returns the linear convolution of x with the kernel, of length
// len(x)+Taps()-1.
func (c *Convolver) Full(x []float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, ErrEmptyInput
	}
	out := make([]float64, len(x)+c.taps-1)
	for start := 0; start < len(x); start += c.block {
		end := min(start+c.block, len(x))

		clear(c.scratch)
		for i, v := range x[start:end] {
			c.scratch[i] = complex(v, 0)
		}
		if err := c.plan.Forward(c.scratch, c.scratch); err != nil {
			return nil, fmt.Errorf("conv: forward transform: %w", err)
		}
		for i, k := range c.spectrum {
			c.scratch[i] *= k
		}
		if err := c.plan.Inverse(c.scratch, c.scratch); err != nil {
			return nil, fmt.Errorf("conv: inverse transform: %w", err)
		}

		span := min(end-start+c.taps-1, len(out)-start)
		for i := 0; i < span; i++ {
			out[start+i] += real(c.scratch[i])
		}
	}
	return out, nil
}

// Centred returns len(x) samples of the convolution aligned on the kernel
// centre. For an odd symmetric kernel this cancels the group delay.
func (c *Convolver) Centred(x []float64) ([]float64, error) {
	full, err := c.Full(x)
	if err != nil {
		return nil, err
	}
	off := (c.taps - 1) / 2
	return full[off : off+len(x)], nil
}

func pow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
