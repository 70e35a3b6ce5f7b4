package spectrum

import (
	"sync"

	"github.com/cwbudde/algo-vecmath"
)

// binScratch pools the split real and imaginary parts PowerInto hands to
// vecmath, so Welch allocates nothing per segment.
var binScratch = sync.Pool{New: func() any { return new([]float64) }}

// PowerInto writes |X[k]|^2 of the first len(dst) bins of in into dst.
func PowerInto(dst []float64, in []complex128) {
	n := min(len(dst), len(in))
	if n == 0 {
		return
	}
	p := binScratch.Get().(*[]float64)
	defer binScratch.Put(p)
	if cap(*p) < 2*n {
		*p = make([]float64, 2*n)
	}
	re, im := (*p)[:n], (*p)[n:2*n]
	for i, c := range in[:n] {
		re[i], im[i] = real(c), imag(c)
	}
	vecmath.Power(dst[:n], re, im)
}
