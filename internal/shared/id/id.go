// Package id generates chunk identifiers for the virtual filesystem.
//
// Chunk ids are ULIDs: a monotonic-friendly timestamp combined with
// crypto-strong random entropy. They are never derived from content, so
// two chunks with identical bytes get distinct ids and removal needs no
// reference counting. The entropy source is injectable so tests can
// produce deterministic ids.
package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ChunkPrefix marks chunk ids in logs and storage keys.
const ChunkPrefix = "chk"

// ChunkID identifies a single stored content chunk.
type ChunkID = string

// Generator produces ULID-based ids from a guarded entropy reader.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator backed by crypto/rand.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator with cryptographically secure entropy.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for tests that need deterministic ids.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// NewChunkID creates a fresh chunk identifier.
func (g *Generator) NewChunkID() ChunkID {
	return ChunkPrefix + "_" + g.Generate().String()
}

// IsChunkID reports whether s carries the chunk prefix and parses as a ULID.
func IsChunkID(s string) bool {
	if len(s) <= len(ChunkPrefix)+1 || s[:len(ChunkPrefix)+1] != ChunkPrefix+"_" {
		return false
	}
	_, err := ulid.Parse(s[len(ChunkPrefix)+1:])
	return err == nil
}
