package vfs

import (
	"bytes"
	"context"

	"github.com/virtualmacros/vfs/internal/infrastructure/monitoring"
	"github.com/virtualmacros/vfs/internal/shared/id"
	"github.com/virtualmacros/vfs/internal/storage"
)

// ChunkStore splits file content into size-bounded fragments and stores
// each under its own namespaced key. Chunk ids are random, never derived
// from content, so removal needs no reference counting.
type ChunkStore struct {
	backend   storage.Backend
	ids       *id.Generator
	chunkSize int
	metrics   *monitoring.Metrics
}

// NewChunkStore creates a chunk store writing pieces of at most chunkSize
// bytes through backend.
func NewChunkStore(backend storage.Backend, ids *id.Generator, chunkSize int, metrics *monitoring.Metrics) *ChunkStore {
	if ids == nil {
		ids = id.Default()
	}
	if chunkSize <= 0 {
		chunkSize = 1 << 20
	}
	return &ChunkStore{
		backend:   backend,
		ids:       ids,
		chunkSize: chunkSize,
		metrics:   metrics,
	}
}

// Write slices content into chunks, stores them in one batch, and returns
// the ordered chunk id list. Empty content stores nothing.
func (c *ChunkStore) Write(ctx context.Context, content []byte) ([]string, error) {
	if len(content) == 0 {
		return nil, nil
	}

	count := (len(content) + c.chunkSize - 1) / c.chunkSize
	chunkIDs := make([]string, 0, count)
	items := make(map[string][]byte, count)

	for off := 0; off < len(content); off += c.chunkSize {
		end := off + c.chunkSize
		if end > len(content) {
			end = len(content)
		}
		cid := c.ids.NewChunkID()
		chunkIDs = append(chunkIDs, cid)
		items[chunkKey(cid)] = content[off:end]
	}

	if err := c.backend.Set(ctx, items); err != nil {
		return nil, backendErr("chunk write", err)
	}
	c.metrics.RecordWrite(len(content))
	return chunkIDs, nil
}

// Read fetches all chunks in one batch and concatenates them in order.
// A missing chunk yields an IntegrityError naming the owning path.
func (c *ChunkStore) Read(ctx context.Context, ownerPath string, chunkIDs []string) ([]byte, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(chunkIDs))
	for i, cid := range chunkIDs {
		keys[i] = chunkKey(cid)
	}

	fetched, err := c.backend.Get(ctx, keys)
	if err != nil {
		return nil, backendErr("chunk read", err)
	}

	var buf bytes.Buffer
	for i, cid := range chunkIDs {
		piece, ok := fetched[keys[i]]
		if !ok {
			return nil, &IntegrityError{Path: ownerPath, ChunkID: cid}
		}
		buf.Write(piece)
	}
	return buf.Bytes(), nil
}

// Remove deletes all listed chunks. Called whenever an entry's chunks
// become unreachable, on overwrite or delete.
func (c *ChunkStore) Remove(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	keys := make([]string, len(chunkIDs))
	for i, cid := range chunkIDs {
		keys[i] = chunkKey(cid)
	}
	if err := c.backend.Remove(ctx, keys); err != nil {
		return backendErr("chunk remove", err)
	}
	return nil
}
