package crawler

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const tatweel = 'ـ'

// asciiDigit maps Persian and Arabic-Indic digits to ASCII
func asciiDigit(r rune) rune {
	switch {
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	}
	return r
}

func queryRune(r rune) rune {
	switch {
	case r == tatweel, unicode.Is(unicode.Cf, r), unicode.IsControl(r):
		// zero-width joiners, BOM, bidi marks and isolates are all Cf
		return ' '
	case r == 'ي', r == 'ى':
		return 'ی'
	case r == 'ك':
		return 'ک'
	}
	return asciiDigit(r)
}

var digitTransformer = runes.Map(asciiDigit)

// NormalizeQuery canonicalizes a user query. It never fails; an empty
// result must be rejected by the caller before planning.
func NormalizeQuery(query string) string {
	// NFKC first so presentation forms fold to letters the rune map knows
	t := transform.Chain(norm.NFKC, runes.Map(queryRune))
	out, _, err := transform.String(t, query)
	if err != nil {
		out = strings.Map(queryRune, query)
	}
	return strings.Join(strings.Fields(out), " ")
}

// ToASCIIDigits converts Persian and Arabic-Indic digits in s to ASCII
func ToASCIIDigits(s string) string {
	out, _, err := transform.String(digitTransformer, s)
	if err != nil {
		return strings.Map(asciiDigit, s)
	}
	return out
}
