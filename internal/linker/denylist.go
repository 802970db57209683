package linker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/orsinium-labs/stopwords"
)

// english backs the implicit-entity filter with a robust stopword list on
// top of the fixed denylist below.
var english = stopwords.MustGet("en")

// denyWords are never linked regardless of entity or alias status: weekday
// and month names plus determiners.
var denyWords = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,

	"january": true, "february": true, "march": true, "april": true,
	"may": true, "june": true, "july": true, "august": true,
	"september": true, "october": true, "november": true, "december": true,

	"the": true, "a": true, "an": true, "this": true, "that": true,
	"these": true, "those": true,
}

// determiners excludes proper-noun runs that open with one.
var determiners = map[string]bool{
	"the": true, "a": true, "an": true, "this": true, "that": true,
	"these": true, "those": true,
}

func denied(surface string) bool {
	return denyWords[strings.ToLower(surface)]
}

// foldSameLen lowercases s without changing its byte length, so offsets into
// the folded string are valid offsets into s. Non-ASCII runes are folded only
// when their UTF-8 encoding keeps the same width; the rare rune that would
// shift is left as is, costing a case-insensitive match, never a bad offset.
func foldSameLen(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		l := unicode.ToLower(r)
		if utf8.RuneLen(l) != utf8.RuneLen(r) {
			l = r
		}
		b.WriteRune(l)
	}
	return b.String()
}

// isWordRune mirrors the matcher's word-boundary definition.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// boundaryBefore reports whether a match starting at pos sits at a word
// boundary on the left.
func boundaryBefore(s string, pos int) bool {
	if pos == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:pos])
	return !isWordRune(r)
}

// boundaryAfter reports whether a match ending at pos (exclusive) sits at a
// word boundary on the right.
func boundaryAfter(s string, pos int) bool {
	if pos >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[pos:])
	return !isWordRune(r)
}
