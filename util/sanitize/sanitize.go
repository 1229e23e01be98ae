// Package sanitize turns repository and component names into strings that
// are safe in image tags and file names.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	// imageTagInvalid matches characters docker rejects in a repository name.
	imageTagInvalid = regexp.MustCompile(`[^a-z0-9._-]+`)

	// filenameInvalid matches characters kept out of generated file names.
	filenameInvalid = regexp.MustCompile(`[^a-z0-9._-]+`)

	// multiDashRegex matches multiple consecutive dashes
	multiDashRegex = regexp.MustCompile(`-+`)
)

// ForImageTag sanitizes a repository name for use as a docker image name.
// Image names are lowercase and may not start with a separator.
func ForImageTag(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = imageTagInvalid.ReplaceAllString(s, "-")
	s = multiDashRegex.ReplaceAllString(s, "-")
	s = strings.TrimLeft(s, ".-_")
	s = strings.TrimRight(s, "-")
	if len(s) > 128 {
		s = s[:128]
	}
	return s
}

// ForFilename sanitizes a string for use in a filename (kebab-case).
func ForFilename(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = filenameInvalid.ReplaceAllString(s, "-")
	s = multiDashRegex.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-.")
	if len(s) > 50 { // Truncate long names
		s = s[:50]
	}
	return s
}
