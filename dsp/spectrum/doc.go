// Package spectrum provides power spectral density estimation and
// spectrum-domain helpers.
//
// [Welch] averages modified periodograms of overlapping segments and returns a
// one-sided density in units²/Hz. FFTs come from algo-fft; per-bin power and
// segment accumulation go through algo-vecmath. [ToneAmplitude] evaluates a
// single bin, which is how line interference is measured before and after
// the notch.
package spectrum
