package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-eeg/dsp/signal"
	"github.com/cwbudde/algo-eeg/eeg"
	"github.com/cwbudde/algo-eeg/internal/edf"
)

func recording(t *testing.T, channels []string, seconds float64) eeg.RawSignal {
	t.Helper()
	gen := signal.NewGenerator(signal.WithSeed(3))
	data, err := gen.Recording(signal.RestingAlpha(), len(channels), seconds)
	require.NoError(t, err)
	sig, err := eeg.NewRawSignal(channels, data, gen.SampleRate())
	require.NoError(t, err)
	return sig
}

func TestMemory(t *testing.T) {
	sig := recording(t, []string{"Fp1"}, 1)

	got, err := Memory{Signal: sig}.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sig.Channels(), got.Channels())

	_, err = Memory{Name: "empty"}.Read(context.Background())
	var se *eeg.SourceUnavailableError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "empty", se.Source)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Memory{Signal: sig}.Read(ctx)
	require.ErrorIs(t, err, eeg.ErrSourceUnavailable)
	require.ErrorIs(t, err, context.Canceled)
}

func TestOnceReadsSingleTime(t *testing.T) {
	calls := 0
	src := NewOnce("upload-1", Func(func(context.Context) (eeg.RawSignal, error) {
		calls++
		return recording(t, []string{"C3"}, 1), nil
	}))

	_, err := src.Read(context.Background())
	require.NoError(t, err)

	_, err = src.Read(context.Background())
	require.ErrorIs(t, err, ErrAlreadyRead)
	require.ErrorIs(t, err, eeg.ErrSourceUnavailable)
	assert.Equal(t, 1, calls)
}

func TestEDFRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.edf")
	sig := recording(t, []string{"Fp1", "Fp2", "O1"}, 4.5)

	require.NoError(t, WriteEDF(path, sig, "Patient X"))

	got, err := EDF{Path: path}.Read(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Fp1", "Fp2", "O1"}, got.Channels())
	assert.Equal(t, 256.0, got.SampleRate())
	assert.Equal(t, 4*256, got.NumSamples(), "partial trailing second is dropped")

	for ch := range got.NumChannels() {
		want := sig.Row(ch)[:got.NumSamples()]
		diff := cmp.Diff(want, got.Row(ch), cmp.Comparer(func(a, b float64) bool {
			return a-b < 0.01 && b-a < 0.01
		}))
		assert.Empty(t, diff, "channel %d", ch)
	}
}

func TestEDFSkipsAnnotations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plus.edf")
	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "X",
		RecordingID:        "Y",
		StartTime:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		DataRecordDuration: time.Second,
		Signals: []edf.Signal{
			{Label: "EEG Cz", PhysicalMin: -100, PhysicalMax: 100, DigitalMin: -32768, DigitalMax: 32767, SamplesPerRecord: 128},
			{Label: "EDF Annotations", PhysicalMin: -1, PhysicalMax: 1, DigitalMin: -32768, DigitalMax: 32767, SamplesPerRecord: 30},
		},
	}
	writeFile(t, path, hdr, [][]float64{make([]float64, 256), make([]float64, 60)})

	got, err := EDF{Path: path}.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"EEG Cz"}, got.Channels())
	assert.Equal(t, 128.0, got.SampleRate())
	assert.Equal(t, 256, got.NumSamples())
}

func TestEDFMixedRates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixed.edf")
	hdr := edf.Header{
		Version:            edf.Version0,
		StartTime:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		DataRecordDuration: time.Second,
		Signals: []edf.Signal{
			{Label: "EEG Cz", PhysicalMin: -100, PhysicalMax: 100, DigitalMin: -32768, DigitalMax: 32767, SamplesPerRecord: 128},
			{Label: "EMG", PhysicalMin: -100, PhysicalMax: 100, DigitalMin: -32768, DigitalMax: 32767, SamplesPerRecord: 64},
		},
	}
	writeFile(t, path, hdr, [][]float64{make([]float64, 128), make([]float64, 64)})

	_, err := EDF{Path: path}.Read(context.Background())
	require.ErrorIs(t, err, eeg.ErrSourceUnavailable)
	assert.ErrorContains(t, err, "mixed sampling rates")
}

func TestEDFUnavailable(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.edf")
	require.NoError(t, os.WriteFile(garbage, []byte("not an edf file"), 0o644))

	for _, path := range []string{filepath.Join(dir, "missing.edf"), garbage} {
		_, err := EDF{Path: path}.Read(context.Background())
		var se *eeg.SourceUnavailableError
		require.ErrorAs(t, err, &se, path)
		assert.Equal(t, path, se.Source)
		assert.False(t, errors.Is(err, eeg.ErrSignalTooShort))
	}
}

func TestEDFMalformedHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.edf")
	require.NoError(t, WriteEDF(path, recording(t, []string{"Cz"}, 2), "X"))

	// Samples per record of the only signal.
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	copy(b[472:480], "-5      ")
	require.NoError(t, os.WriteFile(path, b, 0o644))

	_, err = EDF{Path: path}.Read(context.Background())
	require.ErrorIs(t, err, eeg.ErrSourceUnavailable)
	require.ErrorIs(t, err, edf.ErrMalformedHeader)
}

func TestWriteEDFRejectsFractionalRate(t *testing.T) {
	sig, err := eeg.NewRawSignal([]string{"Cz"}, [][]float64{make([]float64, 100)}, 250.5)
	require.NoError(t, err)
	require.Error(t, WriteEDF(filepath.Join(t.TempDir(), "x.edf"), sig, ""))
}

func writeFile(t *testing.T, path string, hdr edf.Header, rows [][]float64) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w, err := edf.Create(f, hdr)
	require.NoError(t, err)
	for rec := 0; rec*hdr.Signals[0].SamplesPerRecord < len(rows[0]); rec++ {
		record := make([][]float64, len(rows))
		for i, s := range hdr.Signals {
			record[i] = rows[i][rec*s.SamplesPerRecord : (rec+1)*s.SamplesPerRecord]
		}
		require.NoError(t, w.WriteRecord(record))
	}
	require.NoError(t, w.Close())
}
