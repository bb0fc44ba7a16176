package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"marktplaats-watcher/internal/listing"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	createListingsTableSQL = `CREATE TABLE IF NOT EXISTS listings (
        id            BIGSERIAL PRIMARY KEY,
        term_id       BIGINT NOT NULL,
        ad_id         TEXT NOT NULL,
        title         TEXT NOT NULL DEFAULT '',
        price         TEXT NOT NULL DEFAULT '',
        price_value   BIGINT,
        url           TEXT NOT NULL DEFAULT '',
        image_url     TEXT NOT NULL DEFAULT '',
        posted_at     TEXT NOT NULL DEFAULT '',
        first_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        UNIQUE (term_id, ad_id)
    );`

	// The conflict target is the ledger's sole dedup mechanism: two racing
	// inserts for the same (term_id, ad_id) both run, exactly one lands.
	insertListingSQL = `INSERT INTO listings (
        term_id, ad_id, title, price, price_value, url, image_url, posted_at, first_seen_at
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    ON CONFLICT (term_id, ad_id) DO NOTHING;`

	listForTermSQL = `SELECT
        id, term_id, ad_id, title, price, price_value, url, image_url, posted_at, first_seen_at
    FROM listings
    WHERE term_id = $1;`

	countForTermSQL = `SELECT COUNT(*) FROM listings WHERE term_id = $1;`

	resetTermSQL = `DELETE FROM listings WHERE term_id = $1;`
)

// Ledger defines the persisted record of listings already seen per term.
type Ledger interface {
	InsertNew(ctx context.Context, termID int64, items []listing.Listing) ([]listing.Listing, error)
	ListForTerm(ctx context.Context, termID int64, limit int) ([]listing.Listing, error)
	CountForTerm(ctx context.Context, termID int64) (int64, error)
	ResetTerm(ctx context.Context, termID int64) error
}

// Store implements the ledger on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// InitSchema creates the ledger table when it does not exist yet.
func (s *Store) InitSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, createListingsTableSQL); err != nil {
		return fmt.Errorf("init ledger schema: %w", err)
	}
	return nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertNew attempts one insert per listing and returns the subset that was
// actually inserted, each stamped with its first-seen time. A conflict with
// an existing (termID, adID) row is "already known": silently dropped, the
// stored row untouched.
func (s *Store) InsertNew(ctx context.Context, termID int64, items []listing.Listing) ([]listing.Listing, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	inserted := make([]listing.Listing, 0, len(items))
	for _, item := range items {
		firstSeen := time.Now().UTC()

		var priceValue any
		if item.PriceValue != nil {
			priceValue = *item.PriceValue
		}

		tag, execErr := pool.Exec(ctx, insertListingSQL,
			termID,
			item.AdID,
			item.Title,
			item.PriceDisplay,
			priceValue,
			item.URL,
			item.ImageURL,
			item.PostedAt,
			firstSeen,
		)
		if execErr != nil {
			return inserted, fmt.Errorf("insert listing %s: %w", item.AdID, execErr)
		}
		if tag.RowsAffected() == 0 {
			continue
		}

		item.FirstSeenAt = firstSeen
		inserted = append(inserted, item)
	}
	return inserted, nil
}

// ListForTerm returns the ledger entries for a term, newest first by
// best-effort chronological key, capped at limit.
func (s *Store) ListForTerm(ctx context.Context, termID int64, limit int) ([]listing.Listing, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listForTermSQL, termID)
	if queryErr != nil {
		return nil, fmt.Errorf("list listings for term: %w", queryErr)
	}
	defer rows.Close()

	entries := make([]sortableEntry, 0)
	for rows.Next() {
		var (
			entry      Entry
			priceValue sql.NullInt64
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.TermID,
			&entry.Listing.AdID,
			&entry.Listing.Title,
			&entry.Listing.PriceDisplay,
			&priceValue,
			&entry.Listing.URL,
			&entry.Listing.ImageURL,
			&entry.Listing.PostedAt,
			&entry.Listing.FirstSeenAt,
		); err != nil {
			return nil, fmt.Errorf("scan listing row: %w", err)
		}
		if priceValue.Valid {
			value := priceValue.Int64
			entry.Listing.PriceValue = &value
		}
		entries = append(entries, sortableEntry{
			entry: entry,
			key:   listing.SortKey(entry.Listing.PostedAt, entry.Listing.FirstSeenAt),
		})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	// Posted dates are free text, so ordering happens here, not in SQL.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].key.After(entries[j].key)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	results := make([]listing.Listing, 0, len(entries))
	for _, e := range entries {
		results = append(results, e.entry.Listing)
	}
	return results, nil
}

// CountForTerm counts ledger entries for a term.
func (s *Store) CountForTerm(ctx context.Context, termID int64) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countForTermSQL, termID).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count listings for term: %w", scanErr)
	}
	return count, nil
}

// ResetTerm removes every ledger entry for a term. Used by the explicit
// reset and delete operations; entries are never deleted otherwise.
func (s *Store) ResetTerm(ctx context.Context, termID int64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, resetTermSQL, termID); execErr != nil {
		return fmt.Errorf("reset term %d: %w", termID, execErr)
	}
	return nil
}

var _ Ledger = (*Store)(nil)
