package fetcher

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"marktplaats-watcher/internal/listing"
)

var (
	adIDPattern  = regexp.MustCompile(`\b[ma]\d{7,}\b`)
	pricePattern = regexp.MustCompile(`€\s*[\d.,]+|\d+[.,]\d{2}`)
)

// Page fetches the rendered search results page and recovers listings by
// structural heuristics: listing anchors, with price and image pulled from
// the anchor's container.
type Page struct {
	opts    Options
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewPage constructs the rendered-page strategy.
func NewPage(opts Options, logger zerolog.Logger) *Page {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.marktplaats.nl"
	}

	return &Page{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger.With().Str("component", "page_fetcher").Logger(),
	}
}

// Fetch scrapes up to q.Limit listings from the results page. Any failure
// resolves to an empty slice.
func (p *Page) Fetch(ctx context.Context, q Query) []listing.Listing {
	endpoint := p.baseURL + "/q/" + url.PathEscape(strings.TrimSpace(q.Term)) + "/"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		p.logger.Warn().Err(err).Str("term", q.Term).Msg("build page request failed")
		return nil
	}
	if ua := strings.TrimSpace(p.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn().Err(err).Str("term", q.Term).Msg("page request failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn().Int("status", resp.StatusCode).Str("term", q.Term).Msg("page returned non-2xx")
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		p.logger.Warn().Err(err).Str("term", q.Term).Msg("page unparsable")
		return nil
	}

	seen := make(map[string]struct{})
	results := make([]listing.Listing, 0, q.Limit)

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.Contains(href, "/v/") {
			return true
		}

		adID := adIDPattern.FindString(href)
		if adID == "" {
			return true
		}
		if _, dup := seen[adID]; dup {
			return true
		}

		item := map[string]any{
			"id":    adID,
			"title": anchorTitle(a),
			"url":   href,
		}
		if price := containerPrice(a); price != "" {
			item["priceInfo"] = map[string]any{"priceDisplay": price}
		}
		if img := containerImage(a); img != "" {
			item["imageUrl"] = img
		}

		l, ok := listing.Normalize(item, p.baseURL)
		if !ok {
			return true
		}

		seen[adID] = struct{}{}
		results = append(results, l)
		return len(results) < q.Limit
	})

	return results
}

func anchorTitle(a *goquery.Selection) string {
	if h := a.Find("h3").First(); h.Length() > 0 {
		if t := strings.TrimSpace(h.Text()); t != "" {
			return t
		}
	}
	if t, ok := a.Attr("title"); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	return strings.Join(strings.Fields(a.Text()), " ")
}

// containerPrice looks for a price fragment in the anchor itself and then in
// its immediate container. Climbing further would cross into sibling results.
func containerPrice(a *goquery.Selection) string {
	node := a
	for i := 0; i < 2; i++ {
		if m := pricePattern.FindString(node.Text()); m != "" {
			return strings.TrimSpace(m)
		}
		node = node.Parent()
		if node.Length() == 0 {
			break
		}
	}
	return ""
}

func containerImage(a *goquery.Selection) string {
	node := a
	for i := 0; i < 2; i++ {
		img := node.Find("img").First()
		if img.Length() > 0 {
			for _, attr := range []string{"src", "data-src"} {
				if src, ok := img.Attr(attr); ok && strings.TrimSpace(src) != "" {
					return strings.TrimSpace(src)
				}
			}
		}
		node = node.Parent()
		if node.Length() == 0 {
			break
		}
	}
	return ""
}

var _ Fetcher = (*Page)(nil)
