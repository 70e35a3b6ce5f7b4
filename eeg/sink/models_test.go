package sink

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelRegistryInMemory(t *testing.T) {
	ctx := context.Background()
	r, err := NewModelRegistry(ctx, nil)
	require.NoError(t, err)

	_, ok := r.Active()
	assert.False(t, ok)

	_, err = r.Activate(ctx, "  ")
	assert.Error(t, err)

	m, err := r.Activate(ctx, "spectral-cnn-v1")
	require.NoError(t, err)
	v, ok := r.Active()
	require.True(t, ok)
	assert.Equal(t, "spectral-cnn-v1", v)
	cur, _ := r.Current()
	assert.Equal(t, m, cur)
}

func TestModelRegistryPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "eeg.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	r, err := NewModelRegistry(ctx, s.DB())
	require.NoError(t, err)
	_, err = r.Activate(ctx, "v1")
	require.NoError(t, err)
	_, err = r.Activate(ctx, "v2")
	require.NoError(t, err)

	var rows int
	require.NoError(t, s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM active_model").Scan(&rows))
	assert.Equal(t, 1, rows)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	r, err = NewModelRegistry(ctx, s.DB())
	require.NoError(t, err)
	v, ok := r.Active()
	require.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestModelRegistryConcurrentActivate(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()
	r, err := NewModelRegistry(ctx, s.DB())
	require.NoError(t, err)

	versions := []string{"a", "b", "c", "d", "e", "f"}
	var wg sync.WaitGroup
	for _, v := range versions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Activate(ctx, v)
			assert.NoError(t, err)
			_, _ = r.Active()
		}()
	}
	wg.Wait()

	active, ok := r.Active()
	require.True(t, ok)
	assert.Contains(t, versions, active)

	var stored string
	require.NoError(t, s.DB().QueryRowContext(ctx, "SELECT version FROM active_model WHERE id = 1").Scan(&stored))
	assert.Contains(t, versions, stored)
}
