package model

import (
	"strings"

	"github.com/yeseh/cortex/internal/cortexerr"
)

// CategoryPath is an ordered sequence of slugs; the empty sequence is root.
type CategoryPath struct {
	segments []Slug
}

// RootCategory is the canonical empty CategoryPath.
func RootCategory() CategoryPath { return CategoryPath{} }

// ParseCategoryPath builds a CategoryPath from a forward-slash string.
// Both "" and "/" denote root. Consecutive separators are normalized away
// (spec.md §9, consecutive-separator open question: normalize, don't
// reject). Segments that don't parse as a Slug are filtered out rather
// than rejecting the whole path; if nothing remains after filtering a
// non-root input, INVALID_PATH is returned (spec.md §4.1).
func ParseCategoryPath(s string) (CategoryPath, error) {
	trimmed := strings.Trim(s, "/")
	if trimmed == "" {
		return RootCategory(), nil
	}

	parts := strings.Split(trimmed, "/")
	segments := make([]Slug, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue // collapse consecutive separators
		}
		slug, err := NewSlug(p)
		if err != nil {
			continue // invalid segments are filtered, not fatal (spec.md §4.1)
		}
		segments = append(segments, slug)
	}

	if len(segments) == 0 {
		return CategoryPath{}, cortexerr.Newf(cortexerr.InvalidPath,
			"category path %q has no valid segments", s).
			WithRemediation("provide at least one valid slug segment, or omit the path for root")
	}
	return CategoryPath{segments: segments}, nil
}

// String returns the canonical form: segments joined by "/"; root is "".
func (c CategoryPath) String() string {
	if len(c.segments) == 0 {
		return ""
	}
	parts := make([]string, len(c.segments))
	for i, s := range c.segments {
		parts[i] = s.String()
	}
	return strings.Join(parts, "/")
}

// Segments returns a copy of the path's slugs, root to leaf.
func (c CategoryPath) Segments() []Slug {
	out := make([]Slug, len(c.segments))
	copy(out, c.segments)
	return out
}

// Depth returns the number of segments; root has depth 0.
func (c CategoryPath) Depth() int { return len(c.segments) }

// IsRoot reports whether c is the root category.
func (c CategoryPath) IsRoot() bool { return len(c.segments) == 0 }

// Leaf returns the last segment, or the zero Slug if c is root.
func (c CategoryPath) Leaf() Slug {
	if c.IsRoot() {
		return Slug{}
	}
	return c.segments[len(c.segments)-1]
}

// Parent returns the category path one level up; root's parent is root.
func (c CategoryPath) Parent() CategoryPath {
	if c.IsRoot() {
		return c
	}
	return CategoryPath{segments: c.segments[:len(c.segments)-1]}
}

// Child returns the category path formed by appending slug to c.
func (c CategoryPath) Child(slug Slug) CategoryPath {
	segments := make([]Slug, len(c.segments)+1)
	copy(segments, c.segments)
	segments[len(c.segments)] = slug
	return CategoryPath{segments: segments}
}

// Equal reports whether two category paths have identical segments.
func (c CategoryPath) Equal(other CategoryPath) bool {
	if len(c.segments) != len(other.segments) {
		return false
	}
	for i := range c.segments {
		if !c.segments[i].Equal(other.segments[i]) {
			return false
		}
	}
	return true
}

// IsChildOf reports whether c is scope itself or nested under it. Root
// scope matches every path; otherwise scope's segments must be a prefix
// of c's segments.
func (c CategoryPath) IsChildOf(scope CategoryPath) bool {
	if scope.IsRoot() {
		return true
	}
	if len(c.segments) < len(scope.segments) {
		return false
	}
	for i, s := range scope.segments {
		if !c.segments[i].Equal(s) {
			return false
		}
	}
	return true
}

// MemoryPath is a CategoryPath plus a leaf memory slug.
type MemoryPath struct {
	category CategoryPath
	leaf     Slug
}

// NewMemoryPath builds a MemoryPath from an already-parsed category and leaf.
func NewMemoryPath(category CategoryPath, leaf Slug) MemoryPath {
	return MemoryPath{category: category, leaf: leaf}
}

// ParseMemoryPath splits s on "/"; the last segment is the leaf memory
// slug and everything before it forms the CategoryPath. Both halves must
// validate. A bare leaf with no category (e.g. "note") is valid: the
// memory lives directly under root.
func ParseMemoryPath(s string) (MemoryPath, error) {
	trimmed := strings.Trim(s, "/")
	if trimmed == "" {
		return MemoryPath{}, cortexerr.New(cortexerr.InvalidPath, "memory path must not be empty").
			WithRemediation("provide a path such as \"notes/alpha\"")
	}

	parts := make([]string, 0, 4)
	for _, p := range strings.Split(trimmed, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return MemoryPath{}, cortexerr.Newf(cortexerr.InvalidPath, "memory path %q has no valid segments", s)
	}

	leafStr := parts[len(parts)-1]
	leaf, err := NewSlug(leafStr)
	if err != nil {
		return MemoryPath{}, cortexerr.Newf(cortexerr.InvalidPath,
			"memory path %q has an invalid leaf segment %q", s, leafStr).
			WithRemediation("the final segment must be a valid slug")
	}

	var category CategoryPath
	if len(parts) > 1 {
		category, err = ParseCategoryPath(strings.Join(parts[:len(parts)-1], "/"))
		if err != nil {
			return MemoryPath{}, err
		}
	}

	return MemoryPath{category: category, leaf: leaf}, nil
}

// Category returns the category portion of the path.
func (m MemoryPath) Category() CategoryPath { return m.category }

// Leaf returns the memory's own slug (the final path segment).
func (m MemoryPath) Leaf() Slug { return m.leaf }

// Depth returns the total number of segments, including the leaf.
func (m MemoryPath) Depth() int { return m.category.Depth() + 1 }

// String returns the canonical form: category path + "/" + leaf, or just
// the leaf when the category is root.
func (m MemoryPath) String() string {
	if m.category.IsRoot() {
		return m.leaf.String()
	}
	return m.category.String() + "/" + m.leaf.String()
}

// Equal reports whether two memory paths address the same location.
func (m MemoryPath) Equal(other MemoryPath) bool {
	return m.category.Equal(other.category) && m.leaf.Equal(other.leaf)
}
