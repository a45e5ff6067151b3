// Package slug turns display names into URL-safe tokens for published cards.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	validSlug       = regexp.MustCompile(`^[a-z0-9-]+$`)
	invalidChars    = regexp.MustCompile(`[^a-z0-9-]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	hyphenRuns      = regexp.MustCompile(`-{2,}`)
)

// specialChars maps lowercase letters that do not reduce to an ASCII base
// letter under NFD decomposition.
var specialChars = map[rune]string{
	'ñ': "n",
	'æ': "ae",
	'ø': "o",
	'ß': "ss",
	'ð': "d",
	'þ': "th",
	'ç': "c",
}

// Normalize converts arbitrary user-supplied text into a slug candidate.
// The transform is pure and idempotent; input that contains no usable
// characters yields the empty string.
func Normalize(name string) string {
	s := strings.ToLower(name)

	var mapped strings.Builder
	for _, r := range s {
		if repl, ok := specialChars[r]; ok {
			mapped.WriteString(repl)
			continue
		}
		mapped.WriteRune(r)
	}

	s = stripDiacritics(mapped.String())
	s = whitespaceRuns.ReplaceAllString(s, "-")
	s = invalidChars.ReplaceAllString(s, "")
	s = hyphenRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	return s
}

// IsValid reports whether slug is usable as a public URL token.
// Single-character slugs are rejected to keep the public namespace sane.
func IsValid(slug string) bool {
	if len(slug) <= 1 {
		return false
	}
	return validSlug.MatchString(slug)
}

// stripDiacritics decomposes accented letters and drops the combining marks,
// so "é" becomes "e".
func stripDiacritics(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
