package utils

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ContainsString reports whether list contains s.
func ContainsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// CleanToValidUTF8 drops invalid byte sequences.
func CleanToValidUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}

// SafeText unescapes HTML entities, removes control characters and collapses whitespace runs.
func SafeText(s string) string {
	s = html.UnescapeString(CleanToValidUTF8(s))
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// RuneLen counts characters rather than bytes.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// TruncateAtWord shortens s to at most limit characters (suffix included), cutting at the
// last space that fits. Falls back to a hard cut when a single word exceeds the limit.
func TruncateAtWord(s string, limit int, suffix string) string {
	if RuneLen(s) <= limit {
		return s
	}
	budget := limit - RuneLen(suffix)
	if budget <= 0 {
		return string([]rune(suffix)[:limit])
	}
	runes := []rune(s)
	cut := string(runes[:budget])
	// a space right after the cut means the last word fits whole
	if !unicode.IsSpace(runes[budget]) {
		if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
			cut = cut[:i]
		}
	}
	cut = strings.TrimRightFunc(cut, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == ':' || r == '-'
	})
	return cut + suffix
}
