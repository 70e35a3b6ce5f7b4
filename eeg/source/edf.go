package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/cwbudde/algo-eeg/eeg"
	"github.com/cwbudde/algo-eeg/internal/edf"
)

// annotationLabel marks the EDF+ annotation channel, which carries no samples.
const annotationLabel = "EDF Annotations"

// EDF reads a recording from an EDF or EDF+ file. Every ordinary signal must
// share one sampling rate.
type EDF struct {
	Path string
}

// Read decodes the file. Every failure is a *eeg.SourceUnavailableError.
func (e EDF) Read(ctx context.Context) (eeg.RawSignal, error) {
	sig, err := e.read(ctx)
	if err != nil {
		var se *eeg.SourceUnavailableError
		if errors.As(err, &se) {
			return eeg.RawSignal{}, err
		}
		return eeg.RawSignal{}, &eeg.SourceUnavailableError{Source: e.Path, Err: err}
	}
	return sig, nil
}

func (e EDF) read(ctx context.Context) (eeg.RawSignal, error) {
	if err := ctx.Err(); err != nil {
		return eeg.RawSignal{}, err
	}
	f, err := os.Open(e.Path)
	if err != nil {
		return eeg.RawSignal{}, err
	}
	defer f.Close()

	r, err := edf.Open(f)
	if err != nil {
		return eeg.RawSignal{}, err
	}
	hdr := r.Header()
	rows, err := r.ReadAll()
	if err != nil {
		return eeg.RawSignal{}, err
	}

	var (
		names []string
		data  [][]float64
		rate  float64
	)
	for i, s := range hdr.Signals {
		if strings.TrimSpace(s.Label) == annotationLabel {
			continue
		}
		fs := hdr.SampleRate(i)
		switch {
		case rate == 0:
			rate = fs
		case math.Abs(fs-rate) > 1e-9:
			return eeg.RawSignal{}, fmt.Errorf("mixed sampling rates: %q at %g Hz, want %g Hz", s.Label, fs, rate)
		}
		names = append(names, strings.TrimSpace(s.Label))
		data = append(data, rows[i])
	}
	if len(names) == 0 {
		return eeg.RawSignal{}, errors.New("no signal channels")
	}
	return eeg.NewRawSignal(names, data, rate)
}

// WriteEDF stores sig at path as an EDF file with one-second data records.
// The sampling rate must be a whole number of hertz; samples past the last
// full second are dropped.
func WriteEDF(path string, sig eeg.RawSignal, patient string) error {
	fs := sig.SampleRate()
	if fs != math.Trunc(fs) {
		return fmt.Errorf("source: EDF needs an integer sample rate, got %g", fs)
	}

	hdr := edf.Header{
		PatientID:          patient,
		RecordingID:        "algo-eeg",
		StartTime:          time.Now().UTC().Truncate(time.Second),
		DataRecordDuration: time.Second,
	}
	rows := sig.Data()
	for i, name := range sig.Channels() {
		lo, hi := physicalRange(rows[i])
		hdr.Signals = append(hdr.Signals, edf.Signal{
			Label:             name,
			TransducerType:    "AgAgCl electrode",
			PhysicalDimension: "uV",
			PhysicalMin:       lo,
			PhysicalMax:       hi,
			DigitalMin:        math.MinInt16,
			DigitalMax:        math.MaxInt16,
			SamplesPerRecord:  int(fs),
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	w, err := edf.Create(f, hdr)
	if err != nil {
		f.Close()
		return fmt.Errorf("source: %w", err)
	}
	if err := w.WriteSignals(rows); err != nil {
		f.Close()
		return fmt.Errorf("source: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("source: %w", err)
	}
	return f.Close()
}

// physicalRange returns a symmetric range covering row, rounded up to a whole
// microvolt.
func physicalRange(row []float64) (float64, float64) {
	peak := 1.0
	for _, v := range row {
		peak = math.Max(peak, math.Abs(v))
	}
	peak = math.Ceil(peak)
	return -peak, peak
}
