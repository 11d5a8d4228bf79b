package vfs

import (
	"errors"
	"fmt"

	"github.com/virtualmacros/vfs/internal/shared/paths"
)

// Sentinel errors for the operation taxonomy. Callers match with errors.Is.
var (
	// ErrNotFound is returned when an operation's target path is absent.
	ErrNotFound = errors.New("path not found")

	// ErrNotADirectory is returned when a directory was required but the
	// path names a file.
	ErrNotADirectory = errors.New("not a directory")

	// ErrTypeConflict is returned on any other file-vs-directory mismatch.
	ErrTypeConflict = errors.New("entry type conflict")

	// ErrQuotaExceeded is returned when the total size would still exceed
	// the soft cap after one eviction pass.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrFileTooLarge is returned before any storage I/O when a single
	// file exceeds the per-file cap.
	ErrFileTooLarge = errors.New("file exceeds maximum size")

	// ErrInvalidPath is returned for paths outside the virtual namespace.
	ErrInvalidPath = paths.ErrInvalidPath
)

// IntegrityError reports a referenced chunk missing from the backing
// store, naming the file that owns it.
type IntegrityError struct {
	Path    string
	ChunkID string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity error: chunk %s of %s missing from backing store", e.ChunkID, e.Path)
}

// BackendError wraps a backing-store failure with the operation that hit it.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backing store %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func backendErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Op: op, Err: err}
}
