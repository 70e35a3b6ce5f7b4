// Package window generates tapering windows for FIR design and spectral
// estimation.
//
// Windows come in two forms. The symmetric form (the default) is what the
// windowed-sinc designer in dsp/filter/fir expects. The periodic form, chosen
// with WithPeriodic, is the one Welch framing uses.
package window

import (
	"fmt"
	"math"
	"strings"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
	TypeKaiser
)

var names = [...]string{
	TypeRectangular: "rectangular",
	TypeHann:        "hann",
	TypeHamming:     "hamming",
	TypeBlackman:    "blackman",
	TypeKaiser:      "kaiser",
}

// Generalised cosine-sum coefficients a0, a1, a2 ...
var cosineTerms = map[Type][]float64{
	TypeRectangular: {1},
	TypeHann:        {0.5, 0.5},
	TypeHamming:     {0.54, 0.46},
	TypeBlackman:    {0.42, 0.5, 0.08},
}

// String returns the lower-case window name.
func (t Type) String() string {
	if t >= 0 && int(t) < len(names) {
		return names[t]
	}
	return fmt.Sprintf("window(%d)", int(t))
}

// ParseType maps a window name such as "hamming" to its Type. Matching is
// case-insensitive.
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range names {
		if n == name {
			return Type(t), nil
		}
	}
	return 0, fmt.Errorf("window: unknown type %q", name)
}

type options struct {
	periodic bool
	beta     float64
}

// Option configures Generate.
type Option func(*options)

// WithPeriodic selects the DFT-even form.
func WithPeriodic() Option {
	return func(o *options) { o.periodic = true }
}

// WithBeta sets the Kaiser shape parameter. The default is 8.6; negative
// values are ignored.
func WithBeta(beta float64) Option {
	return func(o *options) {
		if beta >= 0 {
			o.beta = beta
		}
	}
}

// Generate returns n coefficients of window t. It returns nil when n <= 0.
// A single-sample window is always [1].
func Generate(t Type, n int, opts ...Option) []float64 {
	if n <= 0 {
		return nil
	}
	o := options{beta: 8.6}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	span := float64(n - 1)
	if o.periodic {
		span = float64(n)
	}

	if t == TypeKaiser {
		norm := besselI0(o.beta)
		for i := range w {
			r := 2*float64(i)/span - 1
			w[i] = besselI0(o.beta*math.Sqrt(math.Max(0, 1-r*r))) / norm
		}
		return w
	}

	terms, ok := cosineTerms[t]
	if !ok {
		terms = cosineTerms[TypeRectangular]
	}
	for i := range w {
		phase := 2 * math.Pi * float64(i) / span
		v, sign := 0.0, 1.0
		for k, a := range terms {
			v += sign * a * math.Cos(float64(k)*phase)
			sign = -sign
		}
		w[i] = v
	}
	return w
}

// Energy returns the sum of squared coefficients, the normalisation of a
// density-scaled periodogram.
func Energy(w []float64) float64 {
	s := 0.0
	for _, v := range w {
		s += v * v
	}
	return s
}

// NoiseBandwidth returns the equivalent noise bandwidth of w in bins. It is
// NaN for an empty window or one whose coefficients sum to zero.
func NoiseBandwidth(w []float64) float64 {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if len(w) == 0 || sum == 0 {
		return math.NaN()
	}
	return float64(len(w)) * Energy(w) / (sum * sum)
}

// besselI0 evaluates the zeroth-order modified Bessel function by its power
// series, which converges quickly for the beta range used in FIR design.
func besselI0(x float64) float64 {
	half := x / 2
	term, sum := 1.0, 1.0
	for k := 1; k < 64; k++ {
		f := half / float64(k)
		term *= f * f
		sum += term
		if term < sum*1e-16 {
			break
		}
	}
	return sum
}
