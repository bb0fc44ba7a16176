package storage

import (
	"time"

	"marktplaats-watcher/internal/listing"
)

// Entry is the persisted form of a listing, keyed by (TermID, AdID).
type Entry struct {
	ID      int64
	TermID  int64
	Listing listing.Listing
}

// sortableEntry pairs an entry with its precomputed chronological key.
type sortableEntry struct {
	entry Entry
	key   time.Time
}
