// Package vfs implements a hierarchical virtual filesystem persisted to a
// key-value backing store.
//
// Metadata lives in a flat path-to-entry map; file bodies are stored as
// size-bounded chunks under their own keys. The Service façade owns the
// lazy-initialization lifecycle and exposes node-style operations: read,
// write, append, list, copy, move, remove, import/export. Every mutating
// operation rewrites the full metadata snapshot to the backing store and
// then emits a change event.
//
// The engine is a single logical actor: operations may block on the
// backing store but never run in parallel with each other, and there is
// no per-path locking or conflict detection. Concurrent writers to the
// same path race at the "last persist wins" level.
package vfs
