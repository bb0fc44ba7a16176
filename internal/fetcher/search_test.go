package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

const searchPayload = `{
	"metadata": {"requestId": "abc"},
	"searchResults": {
		"facets": [{"label": "prijs"}],
		"listings": [
			{
				"itemId": "m1000001",
				"title": "Lego 21026",
				"priceInfo": {"priceDisplay": "€ 45,00"},
				"vipUrl": "/v/verzamelen/m1000001-lego-21026",
				"date": "8 sep 25"
			},
			{
				"itemId": "m1000002",
				"title": "Lego trein",
				"priceInfo": {"priceCents": 12000},
				"vipUrl": "/v/verzamelen/m1000002-lego-trein"
			},
			{
				"title": "zonder id",
				"vipUrl": "/v/verzamelen/kapot"
			},
			{
				"itemId": "m1000004",
				"title": "zonder url"
			},
			{
				"itemId": "m1000005",
				"title": "Lego ruimte",
				"vipUrl": "/v/verzamelen/m1000005"
			}
		]
	}
}`

func newSearch(t *testing.T, handler http.HandlerFunc) (*Search, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := NewSearch(Options{BaseURL: srv.URL, UserAgent: "test", Timeout: time.Second}, noopLogger())
	return s, srv
}

func TestSearchFetchFindsNestedListings(t *testing.T) {
	var gotQuery map[string]string
	s, _ := newSearch(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"query":          r.URL.Query().Get("query"),
			"postcode":       r.URL.Query().Get("postcode"),
			"distanceMeters": r.URL.Query().Get("distanceMeters"),
			"limit":          r.URL.Query().Get("limit"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchPayload))
	})

	got := s.Fetch(context.Background(), Query{Term: "lego", Postcode: "3208BJ", RadiusKM: "75", Limit: 10})

	if gotQuery["query"] != "lego" {
		t.Errorf("query param = %q", gotQuery["query"])
	}
	if gotQuery["postcode"] != "3208BJ" {
		t.Errorf("postcode param = %q", gotQuery["postcode"])
	}
	if gotQuery["distanceMeters"] != "75000" {
		t.Errorf("distanceMeters param = %q", gotQuery["distanceMeters"])
	}

	// Records without id or url are discarded before normalization completes.
	if len(got) != 3 {
		t.Fatalf("got %d listings, want 3", len(got))
	}
	if got[0].AdID != "m1000001" || got[0].PostedAt != "8 sep 25" {
		t.Errorf("first listing = %+v", got[0])
	}
	if got[1].PriceValue == nil || *got[1].PriceValue != 120 {
		t.Errorf("second listing price = %v, want 120", got[1].PriceValue)
	}
}

func TestSearchFetchCapsAtLimit(t *testing.T) {
	s, _ := newSearch(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(searchPayload))
	})

	got := s.Fetch(context.Background(), Query{Term: "lego", RadiusKM: "all", Limit: 2})
	if len(got) != 2 {
		t.Fatalf("got %d listings, want 2", len(got))
	}
}

func TestSearchFetchFailuresYieldEmpty(t *testing.T) {
	s, _ := newSearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if got := s.Fetch(context.Background(), Query{Term: "lego", Limit: 5}); len(got) != 0 {
		t.Errorf("non-2xx should yield empty, got %d", len(got))
	}

	s, _ = newSearch(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	})
	if got := s.Fetch(context.Background(), Query{Term: "lego", Limit: 5}); len(got) != 0 {
		t.Errorf("malformed payload should yield empty, got %d", len(got))
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	down := NewSearch(Options{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if got := down.Fetch(context.Background(), Query{Term: "lego", Limit: 5}); len(got) != 0 {
		t.Errorf("connection failure should yield empty, got %d", len(got))
	}
}

func TestSearchURL(t *testing.T) {
	got := SearchURL("https://www.marktplaats.nl", "lego 21026", "3208BJ", "75")
	want := "https://www.marktplaats.nl/q/lego+21026/#offeredSince:Altijd|sortBy:SORT_INDEX|sortOrder:DECREASING|distanceMeters:75000|postcode:3208BJ"
	if got != want {
		t.Errorf("SearchURL = %q, want %q", got, want)
	}

	got = SearchURL("https://www.marktplaats.nl", "lego", "", "all")
	want = "https://www.marktplaats.nl/q/lego/#offeredSince:Altijd|sortBy:SORT_INDEX|sortOrder:DECREASING"
	if got != want {
		t.Errorf("SearchURL without filters = %q, want %q", got, want)
	}
}
