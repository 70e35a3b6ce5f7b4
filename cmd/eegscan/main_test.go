package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-eeg/eeg/job"
	"github.com/cwbudde/algo-eeg/eeg/sink"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	resetFlags(rootCmd)

	var out, stderr bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default so in-process runs do not
// inherit values from earlier ones.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func synth(t *testing.T, name string, extra ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	args := append([]string{"synth", path, "--channels", "4", "--seconds", "10", "--preset", "alpha", "--line-amp", "0"}, extra...)
	out, err := execute(t, args...)
	require.NoError(t, err)
	require.Contains(t, out, "wrote "+path)
	return path
}

func TestAnalyzeMemorySink(t *testing.T) {
	t.Setenv("EEG__SINK__KIND", "memory")
	t.Setenv("EEG__SCORING__SEED", "9")
	alpha := synth(t, "alpha.edf", "--line-amp", "25")
	beta := synth(t, "beta.edf", "--preset", "beta")

	out, err := execute(t, "analyze", "-o", "json", alpha, beta)
	require.NoError(t, err)

	var got []analysis
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)

	for _, a := range got {
		require.Equal(t, job.Completed, a.Job.State, a.Job.ErrorMessage)
		require.NotNil(t, a.Job.Result)
		assert.Equal(t, 4, a.Job.Metadata.ChannelCount)
		assert.Equal(t, 256.0, a.Job.Metadata.SampleRate)
		assert.Equal(t, 10.0, a.Job.Metadata.DurationSeconds)
	}
	assert.Greater(t, got[0].Job.Result.BandPowers.Alpha, got[0].Job.Result.BandPowers.Beta)
	require.NotNil(t, got[0].Job.Metadata.Conditioning)
	assert.Greater(t, got[0].Job.Metadata.Conditioning.LineRejectionDB(), 20.0)
	assert.LessOrEqual(t, got[0].Job.Result.SeizureProbability, 0.15)
	assert.GreaterOrEqual(t, got[1].Job.Result.SeizureProbability, 0.75)
	assert.Contains(t, got[1].Job.Result.Summary, "Elevated beta activity")
}

func TestAnalyzeReportsFailures(t *testing.T) {
	t.Setenv("EEG__SINK__KIND", "memory")
	short := synth(t, "short.edf", "--seconds", "2")

	out, err := execute(t, "analyze", "-o", "table", short, filepath.Join(t.TempDir(), "missing.edf"))
	require.ErrorContains(t, err, "2 of 2 analyses failed")
	assert.Contains(t, out, "short.edf")
	assert.Contains(t, out, "too short")
	assert.Contains(t, out, "unavailable")
}

func TestSQLiteWorkflow(t *testing.T) {
	db := filepath.Join(t.TempDir(), "eeg.db")
	t.Setenv("EEG__SINK__KIND", "sqlite")
	t.Setenv("EEG__SINK__SQLITE_PATH", db)
	rec := synth(t, "rec.edf")

	out, err := execute(t, "model", "activate", "spectral-cnn-v2")
	require.NoError(t, err)
	assert.Contains(t, out, "active model: spectral-cnn-v2")

	out, err = execute(t, "model", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "spectral-cnn-v2")

	out, err = execute(t, "analyze", "-o", "yaml", rec)
	require.NoError(t, err)
	var got []struct {
		Job struct {
			ID string `yaml:"id"`
		} `yaml:"job"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	id := got[0].Job.ID
	require.NotEmpty(t, id)

	out, err = execute(t, "status", "-o", "json", id)
	require.NoError(t, err)
	var stored sink.Record
	require.NoError(t, json.Unmarshal([]byte(out), &stored))
	assert.Equal(t, job.Completed, stored.State)
	require.NotNil(t, stored.Result)
	assert.Equal(t, "spectral-cnn-v2", stored.Result.ModelVersion)
	require.NotNil(t, stored.Metadata)
	assert.Equal(t, 4, stored.Metadata.ChannelCount)

	out, err = execute(t, "status", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "completed")
}

func TestBands(t *testing.T) {
	t.Setenv("EEG__SINK__KIND", "memory")
	rec := synth(t, "rec.edf")

	out, err := execute(t, "bands", "-o", "table", "--window", "0,8", "--channels", "Fp1,F3", rec)
	require.NoError(t, err)
	for _, want := range []string{"delta", "theta", "alpha", "beta", "channels=2", "notch=[50 100]"} {
		assert.Contains(t, out, want)
	}

	out, err = execute(t, "bands", "-o", "json", "--spectrum", rec)
	require.NoError(t, err)
	var rep bandsReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Len(t, rep.Channels, 4, "window and channel flags from the previous run must not leak")
	assert.Len(t, rep.Bands, 4)
	assert.InDelta(t, 10, rep.DominantFrequency, 1)
	assert.Equal(t, len(rep.Freqs), len(rep.Density))
	assert.NotEmpty(t, rep.Freqs)
}

func TestRejectsBadFormatAndConfig(t *testing.T) {
	t.Setenv("EEG__SINK__KIND", "memory")
	_, err := execute(t, "analyze", "-o", "xml", "x.edf")
	require.ErrorContains(t, err, "unknown output format")

	t.Setenv("EEG__WORKERS__COUNT", "0")
	_, err = execute(t, "status", "-o", "table", "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "workers.count"))
}
