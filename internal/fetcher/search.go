package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"marktplaats-watcher/internal/listing"
)

const searchAPIPath = "/lrp/api/search"

// Search fetches listings from the structured search endpoint and digs the
// listings array out of the loosely shaped response.
type Search struct {
	opts    Options
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewSearch constructs the structured-endpoint strategy.
func NewSearch(opts Options, logger zerolog.Logger) *Search {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.marktplaats.nl"
	}

	return &Search{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger.With().Str("component", "search_fetcher").Logger(),
	}
}

// Fetch retrieves up to q.Limit listings, newest first. Any failure resolves
// to an empty slice.
func (s *Search) Fetch(ctx context.Context, q Query) []listing.Listing {
	params := url.Values{}
	params.Set("query", q.Term)
	params.Set("sortBy", "SORT_INDEX")
	params.Set("sortOrder", "DECREASING")
	params.Set("viewOptions", "list-view")
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", "0")
	if pc := strings.TrimSpace(q.Postcode); pc != "" {
		params.Set("postcode", pc)
	}
	if meters, ok := distanceMeters(q.RadiusKM); ok {
		params.Set("distanceMeters", strconv.Itoa(meters))
	}

	endpoint := s.baseURL + searchAPIPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("term", q.Term).Msg("build search request failed")
		return nil
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(s.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn().Err(err).Str("term", q.Term).Msg("search request failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn().Int("status", resp.StatusCode).Str("term", q.Term).Msg("search returned non-2xx")
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		s.logger.Warn().Err(err).Str("term", q.Term).Msg("search payload undecodable")
		return nil
	}

	items := findListings(root)
	if items == nil {
		s.logger.Debug().Str("term", q.Term).Msg("no listings array in search payload")
		return nil
	}

	results := make([]listing.Listing, 0, q.Limit)
	for _, item := range items {
		if len(results) >= q.Limit {
			break
		}
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		l, ok := listing.Normalize(m, s.baseURL)
		if !ok {
			continue
		}
		results = append(results, l)
	}
	return results
}

// findListings walks the decoded response tree and returns the first array
// whose elements look like listing objects: maps carrying an identifier field
// and a title field.
func findListings(v any) []any {
	switch node := v.(type) {
	case []any:
		if len(node) > 0 {
			if first, ok := node[0].(map[string]any); ok {
				_, hasItemID := first["itemId"]
				_, hasID := first["id"]
				_, hasTitle := first["title"]
				if (hasItemID || hasID) && hasTitle {
					return node
				}
			}
		}
		for _, item := range node {
			if found := findListings(item); found != nil {
				return found
			}
		}
	case map[string]any:
		for _, value := range node {
			if found := findListings(value); found != nil {
				return found
			}
		}
	}
	return nil
}

var _ Fetcher = (*Search)(nil)
