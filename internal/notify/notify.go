package notify

import (
	"context"

	"marktplaats-watcher/internal/listing"
)

// Notifier delivers messages about listings to the operator. Both operations
// are best-effort from the pipeline's point of view: the caller logs and
// swallows errors, because the ledger insert, not delivery, marks a listing
// as handled.
type Notifier interface {
	NotifyListing(ctx context.Context, l listing.Listing) error
	NotifyText(ctx context.Context, text string) error
}
