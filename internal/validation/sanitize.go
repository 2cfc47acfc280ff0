package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// SanitizeText strips markup, collapses runs of whitespace and truncates to maxLen runes.
// A maxLen of 0 means no limit.
func SanitizeText(s string, maxLen int) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		runes := []rune(s)
		s = strings.TrimSpace(string(runes[:maxLen]))
	}
	return s
}
