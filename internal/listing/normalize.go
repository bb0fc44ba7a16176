package listing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date-bearing fields checked in priority order when extracting the posted
// timestamp from a provider record.
var postedAtKeys = []string{"date", "dateTime", "startTime", "startDateTime", "startDate", "postedAt"}

// Nested containers that may carry the posted timestamp one level down.
var postedAtContainers = []string{"dateInfo", "metadata", "timing"}

var postedAtSubKeys = []string{"value", "date", "iso", "iso8601"}

var containerSubKeys = []string{"date", "dateTime", "start", "value"}

// Normalize maps a raw provider record onto the canonical Listing. The second
// return is false when the record misses an identifier or a URL and must be
// discarded. Every other missing field is left empty.
func Normalize(item map[string]any, baseURL string) (Listing, bool) {
	l := Listing{
		AdID:     firstNonEmpty(asString(item["itemId"]), asString(item["id"])),
		Title:    asString(item["title"]),
		PostedAt: ExtractPostedAt(item),
	}

	if priceInfo, ok := item["priceInfo"].(map[string]any); ok {
		if display := asString(priceInfo["priceDisplay"]); display != "" {
			l.PriceDisplay = display
			l.PriceValue = ParsePrice(display)
		} else if cents, ok := asFloat(priceInfo["priceCents"]); ok {
			euros := cents / 100
			l.PriceDisplay = strings.Replace(fmt.Sprintf("€ %.2f", euros), ".", ",", 1)
			rounded := int64(euros + 0.5)
			l.PriceValue = &rounded
		}
	}

	if path := firstNonEmpty(asString(item["url"]), asString(item["vipUrl"]), asString(item["relativeUrl"])); path != "" {
		l.URL = ResolveURL(baseURL, path)
	}

	l.ImageURL = extractImage(item, baseURL)

	if l.AdID == "" || l.URL == "" {
		return Listing{}, false
	}
	return l, true
}

// ExtractPostedAt walks the known date-bearing fields of a provider record and
// returns the first usable value, empty when none parse.
func ExtractPostedAt(item map[string]any) string {
	for _, key := range postedAtKeys {
		if s := postedAtValue(item[key]); s != "" {
			return s
		}
	}

	for _, key := range postedAtContainers {
		nested, ok := item[key].(map[string]any)
		if !ok {
			continue
		}
		for _, sub := range containerSubKeys {
			if s := scalarDate(nested[sub]); s != "" {
				return s
			}
		}
	}

	return ""
}

func postedAtValue(v any) string {
	if s := scalarDate(v); s != "" {
		return s
	}
	if nested, ok := v.(map[string]any); ok {
		for _, sub := range postedAtSubKeys {
			if s := scalarDate(nested[sub]); s != "" {
				return s
			}
		}
	}
	return ""
}

func scalarDate(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number, float64:
		if f, ok := asFloat(t); ok {
			return formatEpoch(f)
		}
	}
	return ""
}

// formatEpoch renders a numeric epoch as a readable timestamp. Values above
// 10^12 are interpreted as milliseconds.
func formatEpoch(v float64) string {
	if v <= 0 {
		return ""
	}
	if v > 1e12 {
		v = v / 1000
	}
	return time.Unix(int64(v), 0).Format("2006-01-02 15:04")
}

// ResolveURL makes ref absolute against the provider base.
func ResolveURL(baseURL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return base + ref
}

func extractImage(item map[string]any, baseURL string) string {
	switch media := item["media"].(type) {
	case map[string]any:
		if imgs, ok := media["images"].([]any); ok && len(imgs) > 0 {
			if first, ok := imgs[0].(map[string]any); ok {
				if u := asString(first["url"]); u != "" {
					return ResolveURL(baseURL, u)
				}
			}
		}
	case []any:
		if len(media) > 0 {
			if first, ok := media[0].(map[string]any); ok {
				if u := asString(first["url"]); u != "" {
					return ResolveURL(baseURL, u)
				}
			}
		}
	}
	if u := asString(item["imageUrl"]); u != "" {
		return ResolveURL(baseURL, u)
	}
	return ""
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int64:
		return float64(t), true
	}
	return 0, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
