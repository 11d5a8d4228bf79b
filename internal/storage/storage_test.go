package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends under test share one contract suite.
func runBackendSuite(t *testing.T, b Backend) {
	ctx := context.Background()

	// Absent keys are missing, not errors.
	got, err := b.Get(ctx, []string{"nope"})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, b.Set(ctx, map[string][]byte{
		"a": []byte("alpha"),
		"b": []byte("beta"),
	}))

	got, err = b.Get(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []byte("alpha"), got["a"])
	assert.Equal(t, []byte("beta"), got["b"])
	_, ok := got["c"]
	assert.False(t, ok)

	require.NoError(t, b.Remove(ctx, []string{"a", "missing"}))
	got, err = b.Get(ctx, []string{"a", "b"})
	require.NoError(t, err)
	_, ok = got["a"]
	assert.False(t, ok)
	assert.Equal(t, []byte("beta"), got["b"])
}

func TestMemoryBackend(t *testing.T) {
	runBackendSuite(t, NewMemory())
}

func TestBoltBackend(t *testing.T) {
	b, err := OpenBolt(filepath.Join(t.TempDir(), "vfs.db"))
	require.NoError(t, err)
	defer b.Close()

	runBackendSuite(t, b)
}

func TestMemoryValueIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	src := []byte("original")
	require.NoError(t, m.Set(ctx, map[string][]byte{"k": src}))
	src[0] = 'X'

	got, err := m.Get(ctx, []string{"k"})
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got["k"])

	// Mutating a returned value must not leak back into the store.
	got["k"][0] = 'Y'
	again, err := m.Get(ctx, []string{"k"})
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again["k"])
}

func TestMemoryFailNextSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("disk full")

	m.FailNextSet = boom
	assert.ErrorIs(t, m.Set(ctx, map[string][]byte{"k": []byte("v")}), boom)

	// Failure is one-shot.
	require.NoError(t, m.Set(ctx, map[string][]byte{"k": []byte("v")}))
	assert.Equal(t, 1, m.Len())
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vfs.db")

	b, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, map[string][]byte{"k": []byte("v")}))
	require.NoError(t, b.Close())

	b, err = OpenBolt(path)
	require.NoError(t, err)
	defer b.Close()

	got, err := b.Get(ctx, []string{"k"})
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got["k"])
}
