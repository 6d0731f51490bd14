// Package paths provides canonical helpers for absolute node paths in the
// content store (e.g. "/cms/io/contents/products/shoes").
//
// Depth is measured by counting '/' separators, so "/cms" has depth 1 and
// the content root of a webspace "/cms/io/contents" has depth 3. Depths
// relative to a webspace are computed by subtracting the root depth.
package paths

import (
	"path"
	"strings"
)

// Separator is the node path separator.
const Separator = "/"

// Normalize converts a path-like value into an absolute node path:
// - ensures a single leading '/'
// - collapses repeated '/'
// - strips a trailing '/' (except for the store root "/")
func Normalize(p string) string {
	p = strings.TrimSpace(p)
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	p = strings.TrimSuffix(p, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Depth returns the absolute depth of a node path, i.e. the number of
// separators it contains.
func Depth(p string) int {
	return strings.Count(p, Separator)
}

// RelativeDepth returns the depth of p measured from a root at rootDepth.
func RelativeDepth(p string, rootDepth int) int {
	return Depth(p) - rootDepth
}

// WithinDepth reports whether a node at relativeDepth passes a requested
// depth limit.
//
// A negative limit means unlimited. A limit of exactly 0 also admits every
// node: the filter only activates for limits greater than zero, so callers
// asking for depth 0 get unlimited traversal rather than "root only".
func WithinDepth(relativeDepth, limit int) bool {
	return limit <= 0 || relativeDepth <= limit
}

// Parent returns the parent path of p. The parent of a top-level node is
// "/", and the parent of "/" is "".
func Parent(p string) string {
	if p == "" || p == Separator {
		return ""
	}
	i := strings.LastIndex(p, Separator)
	if i <= 0 {
		return Separator
	}
	return p[:i]
}

// Name returns the last segment of p.
func Name(p string) string {
	if p == Separator {
		return ""
	}
	return path.Base(p)
}

// Join joins a base path with relative segments into a normalized node path.
func Join(base string, elem ...string) string {
	parts := append([]string{base}, elem...)
	return Normalize(path.Join(parts...))
}

// IsDescendant reports whether p lies strictly below ancestor.
func IsDescendant(p, ancestor string) bool {
	if ancestor == Separator {
		return p != Separator && strings.HasPrefix(p, Separator)
	}
	return strings.HasPrefix(p, ancestor+Separator)
}

// ValidName reports whether name is usable as a node name: non-empty,
// made of lowercase letters, digits, '-' and '_'.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
