package listing

import (
	"encoding/json"
	"testing"
	"time"
)

const base = "https://www.marktplaats.nl"

func TestNormalizeComplete(t *testing.T) {
	item := map[string]any{
		"itemId": "m2084727429",
		"title":  "Lego 21026 Venetië",
		"priceInfo": map[string]any{
			"priceDisplay": "€ 45,00",
		},
		"vipUrl": "/v/verzamelen/lego/m2084727429-lego-21026",
		"media": map[string]any{
			"images": []any{
				map[string]any{"url": "//images.example.net/1.jpg"},
			},
		},
		"date": "2025-11-23T12:34:00",
	}

	l, ok := Normalize(item, base)
	if !ok {
		t.Fatal("expected record to normalize")
	}
	if l.AdID != "m2084727429" {
		t.Errorf("AdID = %q", l.AdID)
	}
	if l.URL != base+"/v/verzamelen/lego/m2084727429-lego-21026" {
		t.Errorf("URL = %q", l.URL)
	}
	if l.ImageURL != "https://images.example.net/1.jpg" {
		t.Errorf("ImageURL = %q", l.ImageURL)
	}
	if l.PriceValue == nil || *l.PriceValue != 45 {
		t.Errorf("PriceValue = %v, want 45", l.PriceValue)
	}
	if l.PostedAt != "2025-11-23T12:34:00" {
		t.Errorf("PostedAt = %q", l.PostedAt)
	}
}

func TestNormalizePriceCents(t *testing.T) {
	item := map[string]any{
		"id":        json.Number("12345"),
		"title":     "iets",
		"url":       "https://www.marktplaats.nl/v/m12345",
		"priceInfo": map[string]any{"priceCents": json.Number("1250")},
	}

	l, ok := Normalize(item, base)
	if !ok {
		t.Fatal("expected record to normalize")
	}
	if l.AdID != "12345" {
		t.Errorf("AdID = %q", l.AdID)
	}
	if l.PriceDisplay != "€ 12,50" {
		t.Errorf("PriceDisplay = %q", l.PriceDisplay)
	}
	if l.PriceValue == nil || *l.PriceValue != 13 {
		t.Errorf("PriceValue = %v, want 13", l.PriceValue)
	}
}

func TestNormalizeDiscardsIncomplete(t *testing.T) {
	if _, ok := Normalize(map[string]any{"title": "geen id", "url": "/v/x"}, base); ok {
		t.Error("record without id should be discarded")
	}
	if _, ok := Normalize(map[string]any{"itemId": "m1", "title": "geen url"}, base); ok {
		t.Error("record without url should be discarded")
	}
}

func TestNormalizeMissingPriceIsNil(t *testing.T) {
	l, ok := Normalize(map[string]any{"itemId": "m1", "title": "x", "url": "/v/m1"}, base)
	if !ok {
		t.Fatal("expected record to normalize")
	}
	if l.PriceValue != nil {
		t.Errorf("PriceValue = %v, want nil", l.PriceValue)
	}
}

func TestExtractPostedAt(t *testing.T) {
	cases := []struct {
		name string
		item map[string]any
		want string
	}{
		{
			name: "plain string",
			item: map[string]any{"date": " 8 sep 25 "},
			want: "8 sep 25",
		},
		{
			name: "priority order",
			item: map[string]any{"postedAt": "later", "date": "first"},
			want: "first",
		},
		{
			name: "epoch seconds",
			item: map[string]any{"startTime": json.Number("1764000000")},
			want: time.Unix(1764000000, 0).Format("2006-01-02 15:04"),
		},
		{
			name: "epoch milliseconds",
			item: map[string]any{"startTime": json.Number("1764000000000")},
			want: time.Unix(1764000000, 0).Format("2006-01-02 15:04"),
		},
		{
			name: "nested value",
			item: map[string]any{"dateTime": map[string]any{"iso": "2025-01-02T10:00:00"}},
			want: "2025-01-02T10:00:00",
		},
		{
			name: "container",
			item: map[string]any{"dateInfo": map[string]any{"start": "2025-03-04"}},
			want: "2025-03-04",
		},
		{
			name: "nothing",
			item: map[string]any{"title": "x"},
			want: "",
		},
	}

	for _, tc := range cases {
		if got := ExtractPostedAt(tc.item); got != tc.want {
			t.Errorf("%s: ExtractPostedAt = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestSortKey(t *testing.T) {
	firstSeen := time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)

	if got := SortKey("2025-11-23 12:34", firstSeen); got.Year() != 2025 || got.Month() != 11 || got.Day() != 23 {
		t.Errorf("ISO sort key = %v", got)
	}

	got := SortKey("8 sep 25", firstSeen)
	if got.Year() != 2025 || got.Month() != time.September || got.Day() != 8 {
		t.Errorf("short date sort key = %v", got)
	}

	if got := SortKey("vandaag", firstSeen); !got.Equal(firstSeen) {
		t.Errorf("unparsable posted-at should fall back to first seen, got %v", got)
	}

	if got := SortKey("", time.Time{}); !got.IsZero() {
		t.Errorf("no dates should yield zero time, got %v", got)
	}

	// Trailing location text after a comma is ignored.
	got = SortKey("23 nov 25, Rotterdam", firstSeen)
	if got.Day() != 23 || got.Month() != time.November {
		t.Errorf("suffixed short date sort key = %v", got)
	}
}
