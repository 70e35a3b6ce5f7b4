package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-eeg/eeg"
	"github.com/cwbudde/algo-eeg/eeg/job"
)

// store is what every sink in this package offers.
type store interface {
	ResultSink
	MetadataRecorder
	Get(ctx context.Context, id uuid.UUID) (Record, error)
}

func sinks(t *testing.T) map[string]store {
	t.Helper()
	out := map[string]store{"memory": NewMemory()}

	sq, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "eeg.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	out["sqlite"] = sq

	if addr := os.Getenv("EEG_TEST_REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		t.Cleanup(func() { client.Close() })
		out["redis"] = NewRedis(client, "eegtest-"+uuid.NewString()[:8], time.Minute)
	}
	return out
}

var sampleResult = eeg.ClinicalResult{
	BandPowers:         eeg.BandPowers{Delta: 1.5, Theta: 2, Alpha: 10, Beta: 5},
	RelativePowers:     eeg.BandPowers{Delta: 1.5 / 18.5, Theta: 2 / 18.5, Alpha: 10 / 18.5, Beta: 5 / 18.5},
	DominantFrequency:  10,
	SeizureProbability: 0.07,
	Summary:            "Findings are consistent with normal rhythmic activity. Dominant alpha power: 10.00.",
	ModelVersion:       "heuristic/test",
}

func TestSinkLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range sinks(t) {
		t.Run(name, func(t *testing.T) {
			id := uuid.New()
			require.NoError(t, s.SetState(ctx, id, job.Processing, ""))
			require.NoError(t, s.SetState(ctx, id, job.Processing, ""), "repeat is a no-op")

			meta := job.Metadata{Channels: []string{"Fp1"}, ChannelCount: 1, SampleRate: 256, DurationSeconds: 10, Samples: 2560}
			require.NoError(t, s.RecordMetadata(ctx, id, meta))

			require.ErrorIs(t, s.AttachResult(ctx, id, sampleResult), ErrNotCompleted)
			require.NoError(t, s.SetState(ctx, id, job.Completed, ""))
			require.NoError(t, s.SetState(ctx, id, job.Completed, ""))
			require.NoError(t, s.AttachResult(ctx, id, sampleResult))
			require.ErrorIs(t, s.AttachResult(ctx, id, sampleResult), ErrResultPresent)

			rec, err := s.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, job.Completed, rec.State)
			require.NotNil(t, rec.Result)
			assert.Empty(t, cmp.Diff(sampleResult, *rec.Result, cmpopts.EquateApprox(0, 1e-12)))
			require.NotNil(t, rec.Metadata)
			assert.Empty(t, cmp.Diff(meta, *rec.Metadata))
			assert.False(t, rec.UpdatedAt.IsZero())
		})
	}
}

func TestSinkRejectsLeavingTerminalState(t *testing.T) {
	ctx := context.Background()
	for name, s := range sinks(t) {
		t.Run(name, func(t *testing.T) {
			id := uuid.New()
			require.NoError(t, s.SetState(ctx, id, job.Processing, ""))
			require.NoError(t, s.SetState(ctx, id, job.Error, "eeg: signal too short"))

			var ite *job.InvalidTransitionError
			require.ErrorAs(t, s.SetState(ctx, id, job.Processing, ""), &ite)
			require.ErrorAs(t, s.SetState(ctx, id, job.Completed, ""), &ite)
			require.ErrorIs(t, s.AttachResult(ctx, id, sampleResult), ErrNotCompleted)

			rec, err := s.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, job.Error, rec.State)
			assert.Equal(t, "eeg: signal too short", rec.ErrorMessage)
			assert.Nil(t, rec.Result)
		})
	}
}

func TestSinkUnknownID(t *testing.T) {
	ctx := context.Background()
	for name, s := range sinks(t) {
		t.Run(name, func(t *testing.T) {
			id := uuid.New()
			_, err := s.Get(ctx, id)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.AttachResult(ctx, id, sampleResult), ErrNotFound)
			assert.ErrorIs(t, s.RecordMetadata(ctx, id, job.Metadata{}), ErrNotFound)
			assert.Error(t, s.SetState(ctx, id, job.State("done"), ""))
		})
	}
}

func TestSQLiteList(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, s.SetState(ctx, id, job.Pending, ""))
		time.Sleep(2 * time.Millisecond)
	}

	recs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, ids[2], recs[0].ID)
	assert.Equal(t, ids[1], recs[1].ID)
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "eeg.db")
	id := uuid.New()

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.SetState(ctx, id, job.Processing, ""))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	rec, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, job.Processing, rec.State)
}

func TestInterfaces(t *testing.T) {
	m := NewMemory()
	var _ job.ResultSink = m
	var _ job.MetadataRecorder = m
	var _ job.ResultSink = (*SQLite)(nil)
	var _ job.ResultSink = (*Redis)(nil)
	var _ job.ModelSource = (*ModelRegistry)(nil)
}
