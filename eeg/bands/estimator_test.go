package bands

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-eeg/eeg"
	"github.com/cwbudde/algo-eeg/internal/testutil"
)

const fs = 256.0

func conditioned(t *testing.T, rows ...[]float64) eeg.ConditionedSignal {
	t.Helper()
	names := make([]string, len(rows))
	for i := range names {
		names[i] = string(rune('A' + i))
	}
	sig, err := eeg.NewRawSignal(names, rows, fs)
	if err != nil {
		t.Fatal(err)
	}
	return eeg.ConditionedSignal{RawSignal: sig}
}

func newEstimator(t *testing.T, opts ...Option) *Estimator {
	t.Helper()
	e, err := New(opts...)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func requireValid(t *testing.T, p Power) {
	t.Helper()
	if !p.Valid() {
		t.Fatalf("band powers not finite and non-negative: %+v", p)
	}
}

func TestEstimateAlphaRhythm(t *testing.T) {
	n := 20 * 256
	sig := conditioned(t,
		testutil.DeterministicSine(10, fs, 1, n),
		testutil.DeterministicSine(10, fs, 1, n),
	)

	est, err := newEstimator(t).Estimate(sig)
	if err != nil {
		t.Fatal(err)
	}
	requireValid(t, est.Power)
	if len(est.Issues) != 0 {
		t.Fatalf("unexpected issues: %v", est.Issues)
	}
	if est.DominantFrequency != 10 {
		t.Errorf("dominant frequency: got %v, want 10", est.DominantFrequency)
	}
	if est.Resolution != 1 {
		t.Errorf("resolution: got %v, want 1", est.Resolution)
	}

	// Six 1 Hz bins in [8, 13] hold essentially all of the 0.5 mean square.
	if got := est.Power.Alpha * 6; math.Abs(got-0.5) > 0.01 {
		t.Errorf("alpha band energy: got %v, want ~0.5", got)
	}
	if est.Power.Alpha < 100*est.Power.Beta || est.Power.Alpha < 100*est.Power.Delta {
		t.Errorf("alpha should dominate: %+v", est.Power)
	}
	if math.Abs(est.Relative.Total()-1) > 1e-12 {
		t.Errorf("relative powers sum: %v", est.Relative.Total())
	}
	if est.Relative.Alpha < 0.99 {
		t.Errorf("relative alpha: %v", est.Relative.Alpha)
	}

	first, last := est.Spectrum.Freqs[0], est.Spectrum.Freqs[len(est.Spectrum.Freqs)-1]
	if first != 1 || last != 40 {
		t.Errorf("retained range: %v-%v Hz, want 1-40", first, last)
	}
}

func TestEstimateBetaDominant(t *testing.T) {
	n := 20 * 256
	row := testutil.Tones(fs, n,
		testutil.Tone{FreqHz: 10, Amplitude: 1},
		testutil.Tone{FreqHz: 20, Amplitude: 4},
	)
	est, err := newEstimator(t).Estimate(conditioned(t, row))
	if err != nil {
		t.Fatal(err)
	}
	requireValid(t, est.Power)
	if est.DominantFrequency != 20 {
		t.Errorf("dominant frequency: got %v, want 20", est.DominantFrequency)
	}
	if est.Power.Beta <= 3*est.Power.Alpha {
		t.Errorf("expected beta > 3*alpha: %+v", est.Power)
	}
}

func TestEstimateAllZero(t *testing.T) {
	sig := conditioned(t, make([]float64, 2048), make([]float64, 2048))

	est, err := newEstimator(t).Estimate(sig)
	if err != nil {
		t.Fatalf("all-zero signal must not fail: %v", err)
	}
	if est.Power != (Power{}) {
		t.Fatalf("band powers: got %+v, want zeros", est.Power)
	}
	if est.DominantFrequency != 0 {
		t.Fatalf("dominant frequency: %v", est.DominantFrequency)
	}
	if len(est.Issues) != 1 || !errors.Is(est.Issues[0], errZeroTotal) {
		t.Fatalf("expected a zero-total issue, got %v", est.Issues)
	}
	if !errors.Is(est.Issues[0], eeg.ErrEstimation) {
		t.Fatal("issue should match eeg.ErrEstimation")
	}
}

func TestEstimateNonFiniteInputIsRecorded(t *testing.T) {
	good := testutil.DeterministicSine(10, fs, 1, 2048)
	bad := testutil.DeterministicSine(10, fs, 1, 2048)
	bad[300] = math.NaN()

	est, err := newEstimator(t).Estimate(conditioned(t, good, bad))
	if err != nil {
		t.Fatal(err)
	}
	requireValid(t, est.Power)
	if len(est.Issues) == 0 {
		t.Fatal("expected a recorded issue for the NaN channel")
	}
	if est.Issues[0].Channel != 1 || est.Issues[0].Stage != "welch" {
		t.Fatalf("issue: %+v", est.Issues[0])
	}
}

func TestEstimateShortSignal(t *testing.T) {
	est, err := newEstimator(t).Estimate(conditioned(t, testutil.DeterministicSine(10, fs, 1, 200)))
	if err != nil {
		t.Fatal(err)
	}
	requireValid(t, est.Power)
	found := false
	for _, is := range est.Issues {
		found = found || errors.Is(is, errShortInput)
	}
	if !found {
		t.Fatalf("expected a short-signal issue, got %v", est.Issues)
	}
	if est.Resolution != 1 {
		t.Fatalf("resolution with 256-point padding: got %v", est.Resolution)
	}
}

func TestChannelPoliciesAgreeForMean(t *testing.T) {
	n := 10 * 256
	sig := conditioned(t,
		testutil.DeterministicSine(6, fs, 2, n),
		testutil.DeterministicSine(11, fs, 1, n),
		testutil.DeterministicNoise(5, 1, n),
	)
	a, err := newEstimator(t).Estimate(sig)
	if err != nil {
		t.Fatal(err)
	}
	b, err := newEstimator(t, WithChannelPolicy(AverageBands)).Estimate(sig)
	if err != nil {
		t.Fatal(err)
	}
	for _, band := range Canonical {
		va, _ := a.Power.Get(band.Name)
		vb, _ := b.Power.Get(band.Name)
		if math.Abs(va-vb) > 1e-12*math.Max(va, 1) {
			t.Errorf("%s: spectra-first %v, bands-first %v", band.Name, va, vb)
		}
	}
}

func TestHalfOpenBands(t *testing.T) {
	// A 4 Hz tone sits on the delta/theta boundary bin.
	sig := conditioned(t, testutil.DeterministicSine(4, fs, 1, 10*256))

	inclusive, err := newEstimator(t).Estimate(sig)
	if err != nil {
		t.Fatal(err)
	}
	halfOpen, err := newEstimator(t, WithHalfOpenBands()).Estimate(sig)
	if err != nil {
		t.Fatal(err)
	}
	if inclusive.Power.Delta <= 2*halfOpen.Power.Delta {
		t.Errorf("inclusive delta %v should include the 4 Hz peak (half-open %v)",
			inclusive.Power.Delta, halfOpen.Power.Delta)
	}
	// Same peak energy spread over one bin fewer.
	if halfOpen.Power.Theta <= inclusive.Power.Theta {
		t.Errorf("half-open theta %v should exceed inclusive %v", halfOpen.Power.Theta, inclusive.Power.Theta)
	}
}

func TestEstimateErrors(t *testing.T) {
	_, err := newEstimator(t).Estimate(eeg.ConditionedSignal{})
	var estErr *eeg.EstimationError
	if !errors.As(err, &estErr) {
		t.Fatalf("empty signal: got %v", err)
	}

	if _, err := New(WithRange(40, 0.5)); err == nil {
		t.Error("expected error for inverted range")
	}
	if _, err := New(WithChannelPolicy(ChannelPolicy(9))); err == nil {
		t.Error("expected error for unknown policy")
	}
	if _, err := newEstimator(t, WithOverlap(1)).Estimate(conditioned(t, make([]float64, 512))); !errors.As(err, &estErr) {
		t.Errorf("bad overlap: got %v", err)
	}
}

func TestParseChannelPolicy(t *testing.T) {
	for _, p := range []ChannelPolicy{AverageSpectra, AverageBands} {
		got, err := ParseChannelPolicy(p.String())
		if err != nil || got != p {
			t.Errorf("round trip %v: got %v, %v", p, got, err)
		}
	}
	if _, err := ParseChannelPolicy("median"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
