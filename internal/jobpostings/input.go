package jobpostings

import (
	"regexp"
	"strings"
)

// urlPattern decides whether a job description input is a link to fetch or
// literal text to use as-is.
var urlPattern = regexp.MustCompile(`^https?://.+`)

// IsURL reports whether the trimmed input should be treated as a job posting URL.
func IsURL(input string) bool {
	return urlPattern.MatchString(strings.TrimSpace(input))
}
