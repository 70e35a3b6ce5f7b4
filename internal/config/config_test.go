package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-eeg/eeg/bands"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestDecodeMergesOverDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, Decode([]byte(`
[conditioning]
line_frequency = 60
max_harmonic = 180

[spectral]
channel_policy = "average-bands"
half_open_bands = true

[sink]
kind = "memory"
`), &cfg))

	want := Default()
	want.Conditioning.LineFrequency = 60
	want.Conditioning.MaxHarmonic = 180
	want.Spectral.ChannelPolicy = "average-bands"
	want.Spectral.HalfOpenBands = true
	want.Sink.Kind = "memory"
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	cfg := Default()
	err := Decode([]byte("[workers]\nthreads = 4\n"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threads")
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	require.NoError(t, ApplyEnv(&cfg, env(map[string]string{
		"EEG__WORKERS__COUNT":            "8",
		"EEG__SCORING__SEED":             "42",
		"EEG__SPECTRAL__OVERLAP":         "0.25",
		"EEG__SPECTRAL__HALF_OPEN_BANDS": "true",
		"EEG__LOG__FORMAT":               " json ",
		"EEG__SINK__SQLITE_PATH":         "/var/lib/eeg.db",
	})))
	assert.Equal(t, 8, cfg.Workers.Count)
	assert.Equal(t, uint64(42), cfg.Scoring.Seed)
	assert.Equal(t, 0.25, cfg.Spectral.Overlap)
	assert.True(t, cfg.Spectral.HalfOpenBands)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/var/lib/eeg.db", cfg.Sink.SQLitePath)
}

func TestApplyEnvBadValue(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(&cfg, env(map[string]string{"EEG__WORKERS__COUNT": "many"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EEG__WORKERS__COUNT")
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeg.toml")
	require.NoError(t, os.WriteFile(path, []byte("[workers]\ncount = 3\nmax_samples = 1000\n"), 0o644))
	t.Setenv("EEG__WORKERS__COUNT", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Workers.Count, "environment wins over file")
	assert.Equal(t, 1000, cfg.Workers.MaxSamples)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "xml"
	cfg.Conditioning.LowCut = 80
	cfg.Spectral.Window = "tukey"
	cfg.Spectral.ChannelPolicy = "median"
	cfg.Workers.Count = 0
	cfg.Sink.Kind = "postgres"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"log.format", "low_cut", "spectral.window", "channel_policy", "workers.count", "sink.kind"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Scoring.Version = "spectral-v2"
	data, err := Encode(cfg)
	require.NoError(t, err)

	got := Default()
	require.NoError(t, Decode(data, &got))
	assert.Empty(t, cmp.Diff(cfg, got))
}

func TestBuilders(t *testing.T) {
	cfg := Default()
	cfg.Spectral.ChannelPolicy = "average-bands"

	c, err := cfg.Conditioner()
	require.NoError(t, err)
	report, err := c.Plan(256)
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 100}, report.NotchFrequencies)

	e, err := cfg.Estimator()
	require.NoError(t, err)
	assert.Equal(t, bands.AverageBands, e.Policy())

	cfg.Scoring.Version = "pinned"
	assert.Equal(t, "pinned", cfg.Scorer().Version())
}
