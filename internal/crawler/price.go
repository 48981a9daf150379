package crawler

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Kiarash1380mohebbi/web-scrapy/pkg/errors"
)

// Unit markers. Toman is the canonical unit; 10 Rial = 1 Toman.
var (
	majorUnitPattern = regexp.MustCompile(`(?i)تومان|تومن|toman`)
	minorUnitPattern = regexp.MustCompile(`(?i)ریال|ريال|﷼|rial`)
	numberPattern    = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// Separators always dropped
const groupSeparators = ",\u060c\u066c"

// Space separators dropped only between two digits ("45 000 000")
const spaceSeparators = "\u00a0\u202f"

// NormalizePrice converts a raw price text into an integer amount in Toman.
//
// It returns nil, nil for empty input and nil with a price error carrying
// the raw text when no number can be recovered. When both unit markers
// occur the major unit wins and no division happens.
func NormalizePrice(raw string) (*int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	minor := !majorUnitPattern.MatchString(raw) && minorUnitPattern.MatchString(raw)

	text := ToASCIIDigits(raw)
	text = majorUnitPattern.ReplaceAllString(text, " ")
	text = minorUnitPattern.ReplaceAllString(text, " ")
	text = stripSeparators(text)

	chunk := longestNumber(text)
	if chunk == "" {
		return nil, errors.NewPrice("", raw, nil)
	}

	value, err := strconv.ParseFloat(chunk, 64)
	if err != nil {
		return nil, errors.NewPrice("", raw, err)
	}
	if minor {
		value /= 10
	}
	value = math.RoundToEven(value)
	if value >= math.MaxInt64 || math.IsInf(value, 0) {
		return nil, errors.NewPrice("", raw, strconv.ErrRange)
	}

	price := int64(value)
	return &price, nil
}

func stripSeparators(text string) string {
	rs := []rune(text)
	var b strings.Builder
	b.Grow(len(text))
	for i, r := range rs {
		if strings.ContainsRune(groupSeparators, r) {
			continue
		}
		if strings.ContainsRune(spaceSeparators, r) {
			if i > 0 && i < len(rs)-1 && isASCIIDigit(rs[i-1]) && isASCIIDigit(rs[i+1]) {
				continue
			}
			r = ' '
		}
		b.WriteRune(r)
	}
	return b.String()
}

// longestNumber returns the longest digits[.digits] run, the earliest one on ties
func longestNumber(text string) string {
	var best string
	for _, m := range numberPattern.FindAllString(text, -1) {
		if len(m) > len(best) {
			best = m
		}
	}
	return best
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
