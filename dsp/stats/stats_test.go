package stats

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-eeg/internal/testutil"
)

func near(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %g, want %g", name, got, want)
	}
}

func TestSummarizeConstant(t *testing.T) {
	s := Summarize(testutil.DC(-3, 500))
	if s.Samples != 500 {
		t.Fatalf("Samples=%d", s.Samples)
	}
	near(t, "Mean", s.Mean, -3, 1e-12)
	near(t, "RMS", s.RMS, 3, 1e-12)
	near(t, "Peak", s.Peak, 3, 0)
	near(t, "Variance", s.Variance, 0, 1e-12)
	if s.Kurtosis != 0 || s.ZeroCrossings != 0 {
		t.Fatalf("Kurtosis=%g ZeroCrossings=%d", s.Kurtosis, s.ZeroCrossings)
	}
	if !s.Flat(0) {
		t.Fatal("constant channel should be flat")
	}
}

func TestSummarizeSine(t *testing.T) {
	// 32 whole cycles.
	x := testutil.DeterministicSine(8, 256, 50, 1024)
	s := Summarize(x)

	near(t, "Mean", s.Mean, 0, 1e-9)
	near(t, "RMS", s.RMS, 50/math.Sqrt2, 1e-9)
	near(t, "Variance", s.Variance, 1250, 1e-6)
	near(t, "Kurtosis", s.Kurtosis, -1.5, 1e-6)
	near(t, "Peak", s.Peak, 50, 1e-9)
	near(t, "RMS func", RMS(x), s.RMS, 1e-12)
	if s.Flat(1) {
		t.Fatal("sine should not be flat")
	}
}

func TestSummarizeAlternating(t *testing.T) {
	x := make([]float64, 100)
	for i := range x {
		x[i] = 2
		if i%2 == 1 {
			x[i] = -2
		}
	}
	s := Summarize(x)
	if s.ZeroCrossings != 99 {
		t.Fatalf("ZeroCrossings=%d, want 99", s.ZeroCrossings)
	}
	near(t, "Kurtosis", s.Kurtosis, -2, 1e-9)
	near(t, "Range", s.Range(), 4, 0)
}

func TestSummarizeLargeOffset(t *testing.T) {
	x := testutil.DeterministicSine(8, 256, 10, 1024)
	for i := range x {
		x[i] += 1e6
	}
	s := Summarize(x)
	near(t, "Mean", s.Mean, 1e6, 1e-6)
	near(t, "Variance", s.Variance, 50, 1e-4)
	near(t, "Kurtosis", s.Kurtosis, -1.5, 1e-4)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s != (Summary{}) {
		t.Fatalf("got %+v, want zero", s)
	}
	if !s.Flat(0) {
		t.Fatal("empty channel should be flat")
	}
	if RMS(nil) != 0 {
		t.Fatal("RMS(nil) != 0")
	}
}
