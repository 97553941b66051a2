// internal/filter/filter.go

// Package filter screens owner-supplied lobby names for prohibited content.
// Names are folded to plain lowercase ASCII-ish text first (compatibility
// decomposition, diacritic stripping, lookalike mapping) so leetspeak and
// homoglyph spellings hit the same patterns as the plain words.
package filter

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// confusables maps lookalike runes that survive decomposition onto the letter
// they imitate.
var confusables = map[rune]rune{
	// digit / symbol leet
	'0': 'o', '1': 'i', '3': 'e', '4': 'a', '@': 'a',
	// Cyrillic and Greek homoglyphs
	'а': 'a', 'е': 'e', 'є': 'e', 'о': 'o', 'с': 'c', 'к': 'k',
	'и': 'n', 'п': 'n', 'н': 'h', 'η': 'h',
	'і': 'i', 'у': 'y',
	// letters with no combining-mark decomposition
	'ø': 'o', 'ł': 'l', 'đ': 'd', 'ð': 'd', 'ħ': 'h', 'ı': 'i',
	'ɨ': 'i', 'ƒ': 'f', 'ɋ': 'q', 'ꞩ': 's', 'ʂ': 's',
}

// patterns match against folded text. Character-class variance (digits,
// diacritics, fullwidth forms) is handled by the fold, not the patterns.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(sand)*n+[ilo]+[gq]+(le+t+|e+r*|no+[gq]+|a+)*s*\b`),
	regexp.MustCompile(`f+a+[gq]+([oeil]+t+(r+y+|r+i+e+)?)?s*\b`),
	regexp.MustCompile(`\bk+[iyl]+k+e+(r+y+|r+i+e+)?s*\b`),
	regexp.MustCompile(`\bt+r+(a+n+(n*i+e+|n*y+|e+r+|o+i+d+)|o+i+d+)s*\b`),
	regexp.MustCompile(`\bc+o{2,}n+s*\b`),
	regexp.MustCompile(`\bc+h+[il]+n+k+s*\b`),
}

// Filter is a pure predicate over candidate lobby names.
type Filter struct{}

// New returns the content filter.
func New() *Filter {
	return &Filter{}
}

// Prohibited reports whether the name trips any prohibited-content pattern.
func (f *Filter) Prohibited(name string) bool {
	folded := fold(name)
	for _, p := range patterns {
		if p.MatchString(folded) {
			return true
		}
	}
	return false
}

// fold lowercases, decomposes, strips combining marks and maps lookalikes.
func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	decomposed, _, err := transform.String(t, s)
	if err != nil {
		decomposed = s
	}

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range strings.ToLower(decomposed) {
		if repl, ok := confusables[r]; ok {
			r = repl
		}
		b.WriteRune(r)
	}
	return b.String()
}
