package slug

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slugify lower-cases s and collapses every whitespace run into a single hyphen.
// Other characters are kept as-is, so "CSE 101" becomes "cse-101".
func Slugify(s string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(s), "-")
}

// OrDerive returns explicit when set, otherwise the slug of fallback
func OrDerive(explicit, fallback string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	return Slugify(strings.TrimSpace(fallback))
}
