package fetcher

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marktplaats-watcher/internal/listing"
)

// Query describes one retrieval: the search text, the operator's location
// filter, and the per-run cap.
type Query struct {
	Term     string
	Postcode string
	// RadiusKM is an integer kilometre string, or the "all" sentinel for no
	// distance filter.
	RadiusKM string
	Limit    int
}

// Fetcher retrieves candidate listings for a query. Implementations never
// fail to the caller: network errors, non-2xx responses, and malformed
// payloads all resolve to an empty slice, so a failed fetch is
// distinguishable from "zero listings" only by being empty.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) []listing.Listing
}

// Options parameterise both fetch strategies.
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// distanceMeters converts a kilometre radius string to meters. Returns false
// for the "all" sentinel and anything unparsable.
func distanceMeters(radiusKM string) (int, bool) {
	r := strings.TrimSpace(radiusKM)
	if r == "" || strings.EqualFold(r, "all") {
		return 0, false
	}
	km, err := strconv.Atoi(r)
	if err != nil || km <= 0 {
		return 0, false
	}
	return km * 1000, true
}

// SearchURL builds the public search results link for a term, used by the
// admin API so the operator can open the same search in a browser.
func SearchURL(baseURL, term, postcode, radiusKM string) string {
	query := strings.ReplaceAll(strings.TrimSpace(term), " ", "+")
	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "/"))
	b.WriteString("/q/")
	b.WriteString(query)
	b.WriteString("/#offeredSince:Altijd|sortBy:SORT_INDEX|sortOrder:DECREASING")

	if meters, ok := distanceMeters(radiusKM); ok {
		b.WriteString("|distanceMeters:")
		b.WriteString(strconv.Itoa(meters))
	}
	if postcode = strings.TrimSpace(postcode); postcode != "" {
		b.WriteString("|postcode:")
		b.WriteString(url.PathEscape(postcode))
	}
	return b.String()
}
