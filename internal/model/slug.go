package model

import (
	"regexp"

	"github.com/yeseh/cortex/internal/cortexerr"
)

// slugPattern matches the canonical slug grammar: lowercase alphanumerics
// joined by single hyphens, no leading/trailing/double hyphen.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Slug is a normalized, hyphen-separated path segment.
type Slug struct {
	value string
}

// NewSlug validates s against the slug grammar and returns a Slug.
func NewSlug(s string) (Slug, error) {
	if !slugPattern.MatchString(s) {
		return Slug{}, cortexerr.Newf(cortexerr.InvalidSlug,
			"%q is not a valid slug", s).
			WithRemediation("slugs must be lowercase alphanumerics joined by single hyphens, e.g. \"daily-standup\"")
	}
	return Slug{value: s}, nil
}

// String returns the normalized slug text.
func (s Slug) String() string { return s.value }

// Equal reports whether two slugs are the same normalized string.
func (s Slug) Equal(other Slug) bool { return s.value == other.value }

// IsZero reports whether s is the zero Slug (never produced by NewSlug).
func (s Slug) IsZero() bool { return s.value == "" }
