package testutil

import (
	"math"
	"testing"
)

func TestDeterministicSine(t *testing.T) {
	s := DeterministicSine(10, 256, 1.0, 256)
	if len(s) != 256 {
		t.Fatalf("len = %d, want 256", len(s))
	}
	if math.Abs(s[0]) > 1e-15 {
		t.Fatalf("s[0] = %v, want 0", s[0])
	}
	for i, v := range s {
		if v < -1 || v > 1 {
			t.Fatalf("s[%d] = %v out of range", i, v)
		}
	}
}

func TestTonesSumComponents(t *testing.T) {
	a := DeterministicSine(10, 256, 1, 64)
	b := DeterministicSine(20, 256, 2, 64)
	mix := Tones(256, 64, Tone{FreqHz: 10, Amplitude: 1}, Tone{FreqHz: 20, Amplitude: 2})
	for i := range mix {
		if math.Abs(mix[i]-(a[i]+b[i])) > 1e-12 {
			t.Fatalf("index %d: got %v, want %v", i, mix[i], a[i]+b[i])
		}
	}
}

func TestDeterministicNoise(t *testing.T) {
	a := DeterministicNoise(42, 1.0, 64)
	b := DeterministicNoise(42, 1.0, 64)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("noise not deterministic at index %d", i)
		}
	}
	c := DeterministicNoise(43, 1.0, 64)
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical noise")
	}
}

func TestChannelsDoNotAlias(t *testing.T) {
	rows := Channels(3, func(ch int) []float64 { return DC(float64(ch), 4) })
	rows[0][0] = 99
	if rows[1][0] != 1 || rows[2][0] != 2 {
		t.Fatalf("rows alias each other: %v", rows)
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(DC(2, 10), 2); math.Abs(got-2) > 1e-12 {
		t.Fatalf("RMS = %v, want 2", got)
	}
	if got := RMS(DC(2, 3), 2); got != 0 {
		t.Fatalf("RMS with oversized skip = %v, want 0", got)
	}
}

func TestImpulse(t *testing.T) {
	imp := Impulse(8, 3)
	for i, v := range imp {
		want := 0.0
		if i == 3 {
			want = 1
		}
		if v != want {
			t.Fatalf("imp[%d] = %v, want %v", i, v, want)
		}
	}
	for _, v := range Impulse(4, 10) {
		if v != 0 {
			t.Fatal("out-of-range impulse should be all zeros")
		}
	}
}
