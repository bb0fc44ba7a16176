package listing

import "time"

// Listing is the canonical record every pipeline stage downstream of the
// fetcher operates on.
type Listing struct {
	AdID         string
	Title        string
	PriceDisplay string
	// PriceValue is the price in whole euros, nil when unknown. Unknown
	// prices are never filtered out.
	PriceValue  *int64
	URL         string
	ImageURL    string
	PostedAt    string
	FirstSeenAt time.Time
}
