// Package fir designs linear-phase FIR kernels and applies them without
// phase distortion.
//
// Coefficient design follows the windowed-sinc method: an ideal low-pass
// impulse response is truncated to an odd length and tapered with a window
// from dsp/window. High-pass, band-pass and (multi-)band-stop kernels are
// composed from low-pass prototypes by spectral inversion and subtraction.
//
// Because every designed kernel is symmetric with odd length, its group delay
// is exactly (N-1)/2 samples. [ZeroPhase] removes that delay after FFT-based
// convolution (dsp/conv), so filtered output stays time-aligned with the input.
package fir
