package identity

import (
	"strings"
	"unicode"
)

// normalizeName lower-cases and collapses whitespace
func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// MatchesName reports whether query is a case-insensitive substring of name.
// An empty query or name never matches.
func MatchesName(query, name string) bool {
	q, n := normalizeName(query), normalizeName(name)
	if q == "" || n == "" {
		return false
	}
	return strings.Contains(n, q)
}

// words lower-cases s and keeps only letter/digit runs, space separated and
// padded so whole-word containment is a plain substring check.
func words(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return ""
	}
	return " " + strings.Join(fields, " ") + " "
}

// participantMatches compares a free-text meeting participant with a member's
// recording name. The participant may be any substring of the name ("Suah"
// matches "Suah Kim"). The reverse only holds on whole words, so
// "Suah Kim (guest)" matches "Suah Kim" but "Kalman" never matches "Al".
func participantMatches(participant, name string) bool {
	if MatchesName(participant, name) {
		return true
	}
	p, n := words(participant), words(name)
	return n != "" && strings.Contains(p, n)
}
