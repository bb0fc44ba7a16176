package listing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePrice turns a display price like "€ 1.234,56" into whole euros,
// rounded to the nearest unit. It strips everything but digits and
// separators, then decides which separator is the decimal one. A missing or
// unparsable price yields nil, meaning "unknown, never filter out".
func ParsePrice(display string) *int64 {
	cleaned := stripToDigitsAndSeparators(display)
	if cleaned == "" {
		return nil
	}

	normalized := normalizeSeparators(cleaned)

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return nil
	}

	value := d.Round(0).IntPart()
	if value < 0 {
		return nil
	}
	return &value
}

func stripToDigitsAndSeparators(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), ".,")
}

// normalizeSeparators rewrites a mixed "1.234,56" / "1,234.56" style number
// into plain decimal notation. With both separators present the last one is
// decimal; with a single separator, only a two-digit tail counts as decimal.
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = replaceSingleSeparator(s, ",", lastComma)
	case lastDot >= 0:
		s = replaceSingleSeparator(s, ".", lastDot)
	}
	return s
}

func replaceSingleSeparator(s, sep string, last int) string {
	tail := len(s) - last - 1
	if strings.Count(s, sep) == 1 && (tail == 1 || tail == 2) {
		return strings.Replace(s, sep, ".", 1)
	}
	// Thousands grouping ("1.234" or "1.234.567").
	return strings.ReplaceAll(s, sep, "")
}
