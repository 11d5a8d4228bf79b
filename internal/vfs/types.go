package vfs

import (
	"time"
)

// EntryKind discriminates the entry union.
type EntryKind string

const (
	// KindDirectory marks a directory entry.
	KindDirectory EntryKind = "dir"
	// KindFile marks a file entry.
	KindFile EntryKind = "file"
)

// Entry is a node in the tree: either a directory or a chunked file.
// Children are discovered by path-prefix match, never stored on the entry.
type Entry struct {
	Kind     EntryKind `json:"kind"`
	Size     int64     `json:"size,omitempty"`
	ChunkIDs []string  `json:"chunkIds,omitempty"`
	Modified time.Time `json:"modified"`
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Kind == KindDirectory
}

// DirEntry builds a directory entry.
func DirEntry(modified time.Time) Entry {
	return Entry{Kind: KindDirectory, Modified: modified}
}

// FileEntry builds a file entry referencing its stored chunks.
func FileEntry(size int64, chunkIDs []string, modified time.Time) Entry {
	return Entry{Kind: KindFile, Size: size, ChunkIDs: chunkIDs, Modified: modified}
}

// Stats tracks size accounting and access recency for the whole tree.
// TotalSize always equals the sum of File sizes; it is maintained
// incrementally, never recomputed outside migration and default init.
type Stats struct {
	TotalSize  int64                `json:"totalSize"`
	LastAccess map[string]time.Time `json:"lastAccess"`
	LastChange time.Time            `json:"lastChange"`
}

// DirKind names one of the four default directories.
type DirKind string

const (
	DirSave     DirKind = "save"
	DirData     DirKind = "data"
	DirDownload DirKind = "download"
	DirLog      DirKind = "log"
)

// Config holds the user-overridable default directory paths. Each is
// lazily auto-created on first access.
type Config struct {
	SavePath     string `json:"savePath"`
	DataPath     string `json:"dataPath"`
	DownloadPath string `json:"downloadPath"`
	LogPath      string `json:"logPath"`
}

// PathFor returns the configured path for a default-directory kind.
func (c Config) PathFor(kind DirKind) string {
	switch kind {
	case DirSave:
		return c.SavePath
	case DirData:
		return c.DataPath
	case DirDownload:
		return c.DownloadPath
	case DirLog:
		return c.LogPath
	}
	return ""
}

// Paths returns all four default directory paths.
func (c Config) Paths() []string {
	return []string{c.SavePath, c.DataPath, c.DownloadPath, c.LogPath}
}

// Tombstone records a deletion for a bounded time.
type Tombstone struct {
	Path      string    `json:"path"`
	RemovedAt time.Time `json:"removedAt"`
}

// NodeInfo describes a node for listing and stat calls.
type NodeInfo struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	IsDir    bool      `json:"is_dir"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Bundle is the export/import wire format: full file contents plus
// config and stats, serialized as one document.
type Bundle struct {
	ExportedAt time.Time         `json:"exportedAt"`
	Config     Config            `json:"config"`
	Stats      Stats             `json:"stats"`
	Files      map[string]string `json:"files"`
}

// EventKind classifies a change event.
type EventKind string

const (
	EventWrite  EventKind = "write"
	EventDelete EventKind = "delete"
	EventMkdir  EventKind = "mkdir"
	EventImport EventKind = "import"
)

// Event is delivered to change subscribers after a mutation persists.
type Event struct {
	Kind EventKind `json:"kind"`
	Path string    `json:"path"`
	Time time.Time `json:"time"`
}
