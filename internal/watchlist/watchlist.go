package watchlist

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Term is one watched search term with its scheduling and price overrides.
type Term struct {
	ID              int        `json:"id"`
	Term            string     `json:"term"`
	IntervalMinutes int        `json:"interval_minutes,omitempty"`
	MinPrice        *int64     `json:"min_price,omitempty"`
	MaxPrice        *int64     `json:"max_price,omitempty"`
	LimitPerRun     int        `json:"limit_per_run,omitempty"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
}

// ClampLimit bounds a per-run listing cap to the supported range.
func ClampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > 20 {
		return 20
	}
	return limit
}

// decodeTerms accepts the on-disk formats the file has accumulated over time:
// a plain list of term objects, a {"keywords": [...]} wrapper, a single
// object, or bare strings as items.
func decodeTerms(data []byte) []Term {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil
	}

	var items []any
	switch v := root.(type) {
	case []any:
		items = v
	case map[string]any:
		if kws, ok := v["keywords"].([]any); ok {
			items = kws
		} else {
			items = []any{v}
		}
	default:
		return nil
	}

	terms := make([]Term, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			terms = append(terms, termFromMap(v))
		case string:
			terms = append(terms, Term{Term: v})
		}
	}
	return terms
}

func termFromMap(m map[string]any) Term {
	t := Term{
		ID:              intField(m, "id"),
		Term:            stringField(m, "term"),
		IntervalMinutes: intField(m, "interval_minutes"),
		LimitPerRun:     intField(m, "limit_per_run"),
		MinPrice:        priceField(m, "min_price"),
		MaxPrice:        priceField(m, "max_price"),
	}

	if raw := stringField(m, "last_run_at"); raw != "" {
		if at, ok := parseLastRun(raw); ok {
			t.LastRunAt = &at
		}
	}
	return t
}

// parseLastRun accepts RFC3339 and the bare ISO form without zone. Anything
// else (including the legacy "never" marker) means "never run".
func parseLastRun(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if at, err := time.Parse(layout, raw); err == nil {
			return at, true
		}
	}
	return time.Time{}, false
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	}
	return ""
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return 0
}

func priceField(m map[string]any, key string) *int64 {
	switch v := m[key].(type) {
	case float64:
		n := int64(v)
		if n >= 0 {
			return &n
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && n >= 0 {
			return &n
		}
	}
	return nil
}
