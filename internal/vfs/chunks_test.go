package vfs

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualmacros/vfs/internal/storage"
)

func newTestChunkStore(chunkSize int) (*ChunkStore, *storage.Memory) {
	mem := storage.NewMemory()
	return NewChunkStore(mem, nil, chunkSize, nil), mem
}

func TestChunkRoundTrip(t *testing.T) {
	ctx := context.Background()
	cs, mem := newTestChunkStore(4)

	content := []byte("hello chunked world")
	ids, err := cs.Write(ctx, content)
	require.NoError(t, err)
	assert.Len(t, ids, 5) // 19 bytes in 4-byte chunks
	assert.Equal(t, 5, mem.Len())

	got, err := cs.Read(ctx, "/f.txt", ids)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestChunkRoundTripMultiByte(t *testing.T) {
	ctx := context.Background()
	cs, _ := newTestChunkStore(3)

	// Rune boundaries fall mid-chunk; byte slicing must still reassemble.
	content := []byte("héllo wörld ünïcödé ✓")
	ids, err := cs.Write(ctx, content)
	require.NoError(t, err)

	got, err := cs.Read(ctx, "/u.txt", ids)
	require.NoError(t, err)
	assert.Equal(t, string(content), string(got))
}

func TestChunkWriteEmpty(t *testing.T) {
	ctx := context.Background()
	cs, mem := newTestChunkStore(4)

	ids, err := cs.Write(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Zero(t, mem.Len())

	got, err := cs.Read(ctx, "/empty", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestChunkSingleChunkForSmallContent(t *testing.T) {
	ctx := context.Background()
	cs, _ := newTestChunkStore(1 << 20)

	ids, err := cs.Write(ctx, []byte(strings.Repeat("x", 1000)))
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestChunkReadMissingChunk(t *testing.T) {
	ctx := context.Background()
	cs, mem := newTestChunkStore(4)

	ids, err := cs.Write(ctx, []byte("0123456789"))
	require.NoError(t, err)
	require.Len(t, ids, 3)

	require.NoError(t, mem.Remove(ctx, []string{chunkKey(ids[1])}))

	_, err = cs.Read(ctx, "/victim.txt", ids)
	var integrity *IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "/victim.txt", integrity.Path)
	assert.Equal(t, ids[1], integrity.ChunkID)
}

func TestChunkRemove(t *testing.T) {
	ctx := context.Background()
	cs, mem := newTestChunkStore(4)

	ids, err := cs.Write(ctx, []byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, cs.Remove(ctx, ids))
	assert.Zero(t, mem.Len())

	// Removing nothing is fine.
	assert.NoError(t, cs.Remove(ctx, nil))
}

func TestChunkIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	cs, _ := newTestChunkStore(1)

	ids, err := cs.Write(ctx, []byte("aaaa"))
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate chunk id %s", id)
		seen[id] = true
	}
}
