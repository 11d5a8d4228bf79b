package vfs

import (
	"sort"
	"time"

	"github.com/virtualmacros/vfs/internal/shared/paths"
)

// Tree is the flat path-to-entry map plus its access and size statistics.
// It is owned exclusively by the Service and is not safe for concurrent
// use on its own.
type Tree struct {
	entries map[string]Entry
	stats   Stats
}

// NewTree creates a tree holding only the root directory.
func NewTree() *Tree {
	t := &Tree{
		entries: make(map[string]Entry),
		stats: Stats{
			LastAccess: make(map[string]time.Time),
		},
	}
	t.entries[paths.Root] = DirEntry(time.Now())
	return t
}

// Get returns the entry at a normalized path.
func (t *Tree) Get(path string) (Entry, bool) {
	e, ok := t.entries[path]
	return e, ok
}

// Set stores an entry, keeping TotalSize and recency bookkeeping in step:
// a replaced file's size is subtracted before the new one is added.
func (t *Tree) Set(path string, e Entry) {
	if old, ok := t.entries[path]; ok && old.Kind == KindFile {
		t.stats.TotalSize -= old.Size
	}
	if e.Kind == KindFile {
		t.stats.TotalSize += e.Size
	}
	t.entries[path] = e

	now := time.Now()
	t.stats.LastAccess[path] = now
	t.stats.LastChange = now
}

// Delete removes an entry and clears its recency record.
func (t *Tree) Delete(path string) {
	if old, ok := t.entries[path]; ok && old.Kind == KindFile {
		t.stats.TotalSize -= old.Size
	}
	delete(t.entries, path)
	delete(t.stats.LastAccess, path)
	t.stats.LastChange = time.Now()
}

// Touch records an access without changing the entry.
func (t *Tree) Touch(path string) {
	if _, ok := t.entries[path]; ok {
		t.stats.LastAccess[path] = time.Now()
	}
}

// ChildrenOf returns every descendant of a normalized path (all keys
// prefixed by path + "/", excluding path itself), sorted lexicographically.
func (t *Tree) ChildrenOf(path string) []string {
	var out []string
	for p := range t.entries {
		if paths.IsDescendant(path, p) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// FilesByLastAccess returns all file paths ordered least-recently-accessed
// first. Paths with no recorded access sort before everything else.
func (t *Tree) FilesByLastAccess() []string {
	var out []string
	for p, e := range t.entries {
		if e.Kind == KindFile {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := t.stats.LastAccess[out[i]], t.stats.LastAccess[out[j]]
		if ai.Equal(aj) {
			return out[i] < out[j]
		}
		return ai.Before(aj)
	})
	return out
}

// TotalSize returns the current sum of file sizes.
func (t *Tree) TotalSize() int64 {
	return t.stats.TotalSize
}

// LastAccess returns the recorded access time for a path (zero if none).
func (t *Tree) LastAccess(path string) time.Time {
	return t.stats.LastAccess[path]
}

// Stats returns a copy of the tree's statistics.
func (t *Tree) Stats() Stats {
	cp := Stats{
		TotalSize:  t.stats.TotalSize,
		LastAccess: make(map[string]time.Time, len(t.stats.LastAccess)),
		LastChange: t.stats.LastChange,
	}
	for k, v := range t.stats.LastAccess {
		cp.LastAccess[k] = v
	}
	return cp
}

// Len returns the number of entries, the root included.
func (t *Tree) Len() int {
	return len(t.entries)
}

// recomputeStats rebuilds TotalSize from scratch. Only migration and
// snapshot recovery use this; normal operation is incremental.
func (t *Tree) recomputeStats() {
	var total int64
	for _, e := range t.entries {
		if e.Kind == KindFile {
			total += e.Size
		}
	}
	t.stats.TotalSize = total
}
