package catalog

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxSlugLength = 60

var (
	slugStrip = regexp.MustCompile(`[^a-z0-9ก-๙\s-]`)
	slugSpace = regexp.MustCompile(`\s+`)
)

// Slugify lowercases value, keeps latin letters, digits, Thai characters and dashes,
// and joins words with '-'. The result is cut to 60 characters.
func Slugify(value string) string {
	s := strings.ToLower(value)
	s = slugStrip.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = slugSpace.ReplaceAllString(s, "-")
	if utf8.RuneCountInString(s) > maxSlugLength {
		s = string([]rune(s)[:maxSlugLength])
	}
	return s
}
