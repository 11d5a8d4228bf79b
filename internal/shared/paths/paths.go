// Package paths canonicalizes virtual filesystem paths.
//
// Virtual paths are a namespace of their own: always absolute, always
// POSIX-separated, never tied to a real disk location. Mapping a virtual
// path onto an operating-system path is the job of a different backend,
// so OS-absolute inputs like "C:\macros" are rejected outright.
package paths

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Root is the canonical form of the tree root.
const Root = "/"

// ErrInvalidPath is returned when a path cannot name a virtual node.
var ErrInvalidPath = errors.New("invalid virtual path")

// osAbsolute matches Windows-style drive paths ("C:/...", "C:\...").
var osAbsolute = regexp.MustCompile(`^[A-Za-z]:[/\\]`)

// Normalize canonicalizes a path string: backslashes become forward
// slashes, duplicate and trailing slashes collapse, and the result always
// carries a single leading slash. Normalize is idempotent.
func Normalize(path string) (string, error) {
	if osAbsolute.MatchString(path) {
		return "", fmt.Errorf("%w: %q is an operating-system path", ErrInvalidPath, path)
	}

	path = strings.ReplaceAll(path, `\`, "/")

	segments := make([]string, 0, 8)
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." {
			continue
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		return Root, nil
	}
	return "/" + strings.Join(segments, "/"), nil
}

// IsRoot reports whether a normalized path is the tree root.
func IsRoot(path string) bool {
	return path == Root
}

// Base returns the final segment of a normalized path ("" for the root).
func Base(path string) string {
	if IsRoot(path) {
		return ""
	}
	idx := strings.LastIndexByte(path, '/')
	return path[idx+1:]
}

// Parent returns the parent of a normalized path; the root is its own parent.
func Parent(path string) string {
	if IsRoot(path) {
		return Root
	}
	idx := strings.LastIndexByte(path, '/')
	if idx == 0 {
		return Root
	}
	return path[:idx]
}

// Ancestors returns every proper ancestor of a normalized path, shallowest
// first, excluding the root. Ancestors("/a/b/c") is ["/a", "/a/b"].
func Ancestors(path string) []string {
	if IsRoot(path) {
		return nil
	}
	var out []string
	for i := 1; i < len(path); i++ {
		if path[i] == '/' {
			out = append(out, path[:i])
		}
	}
	return out
}

// Depth returns the number of segments in a normalized path (0 for root).
func Depth(path string) int {
	if IsRoot(path) {
		return 0
	}
	return strings.Count(path, "/")
}

// IsDescendant reports whether child lies strictly below parent.
// Both paths must already be normalized.
func IsDescendant(parent, child string) bool {
	if IsRoot(parent) {
		return !IsRoot(child)
	}
	return strings.HasPrefix(child, parent+"/")
}

// IsImmediateChild reports whether child is exactly one segment below
// parent. Both paths must already be normalized.
func IsImmediateChild(parent, child string) bool {
	if !IsDescendant(parent, child) {
		return false
	}
	rest := Relative(parent, child)
	return !strings.ContainsRune(rest, '/')
}

// Relative returns child's path remainder below parent, without a leading
// slash. Both paths must already be normalized and related.
func Relative(parent, child string) string {
	if IsRoot(parent) {
		return strings.TrimPrefix(child, "/")
	}
	return strings.TrimPrefix(child, parent+"/")
}

// Join appends a relative remainder onto a normalized base path.
func Join(base, rest string) string {
	if rest == "" {
		return base
	}
	if IsRoot(base) {
		return "/" + rest
	}
	return base + "/" + rest
}
