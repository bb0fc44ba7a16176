package listing

import (
	"strconv"
	"strings"
	"time"
)

// Month abbreviations as the provider renders short dates ("8 sep 25").
var monthAbbr = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mrt": time.March,
	"apr": time.April, "mei": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"okt": time.October, "nov": time.November, "dec": time.December,
}

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// SortKey derives the best-effort chronological key used to order ledger
// entries newest first: the parsed posted-at when possible, the first-seen
// timestamp otherwise, and the zero time (sorted last) when neither exists.
func SortKey(postedAt string, firstSeen time.Time) time.Time {
	if at, ok := ParsePostedAt(postedAt); ok {
		return at
	}
	return firstSeen
}

// ParsePostedAt parses the free-text posted date. Supported forms: ISO
// datetimes and "D mon YY" short dates with two-digit years meaning 2000+.
func ParsePostedAt(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	// Providers append location or badge text after a comma or pipe.
	for _, sep := range []string{",", "|"} {
		if idx := strings.Index(s, sep); idx >= 0 {
			s = strings.TrimSpace(s[:idx])
		}
	}

	for _, layout := range isoLayouts {
		if at, err := time.Parse(layout, s); err == nil {
			return at, true
		}
	}

	return parseShortDate(s)
}

func parseShortDate(s string) (time.Time, bool) {
	parts := strings.Fields(strings.ReplaceAll(s, ".", ""))
	if len(parts) < 3 {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}

	month, ok := monthAbbr[strings.ToLower(parts[1])]
	if !ok {
		return time.Time{}, false
	}

	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, false
	}
	if year < 100 {
		year += 2000
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.Local), true
}
