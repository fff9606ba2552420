// Package editor holds the state behind the post and project editors: slug
// derivation, the in-progress draft record, debounced slug availability
// checks and a session-scoped draft cache.
package editor

import (
	"regexp"
	"strings"
)

var (
	reNonSlug   = regexp.MustCompile(`[^\w\s-]`)
	reSeparator = regexp.MustCompile(`[\s_-]+`)
)

// Slugify converts a title to a URL-safe slug: lowercase, characters other
// than word characters, whitespace and hyphens removed, runs of whitespace,
// underscores and hyphens collapsed to one hyphen, and no leading or trailing
// hyphen. Slugify is idempotent.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = reNonSlug.ReplaceAllString(s, "")
	s = reSeparator.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
