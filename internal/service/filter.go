package service

import "marktplaats-watcher/internal/listing"

// FilterByPrice keeps the listings inside the inclusive [min, max] bounds.
// A nil bound is unbounded on that side; a listing with an unknown price
// always passes.
func FilterByPrice(items []listing.Listing, min, max *int64) []listing.Listing {
	if min == nil && max == nil {
		return items
	}

	kept := make([]listing.Listing, 0, len(items))
	for _, item := range items {
		if item.PriceValue == nil {
			kept = append(kept, item)
			continue
		}
		if min != nil && *item.PriceValue < *min {
			continue
		}
		if max != nil && *item.PriceValue > *max {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}
