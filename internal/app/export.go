package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"marktplaats-watcher/internal/listing"
)

// Export writes the stored results of a term as CSV and/or a price-over-time
// PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	terms := a.buildComponents(store).terms
	term, err := terms.Get(opts.TermID)
	if err != nil {
		return err
	}

	results, err := store.ListForTerm(ctx, int64(opts.TermID), 0)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		a.Logger.Info().Str("term", term.Term).Msg("no stored results to export")
		return nil
	}

	// ListForTerm returns newest first; exports run oldest first.
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}

	downsampled := downsampleListings(results, opts.MaxPoints)
	a.Logger.Info().Int("total", len(results)).Int("exported", len(downsampled)).Msg("exporting results")

	if opts.CSVPath != "" {
		if err := writeListingsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeListingsPNG(opts.PNGPath, term.Term, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleListings(results []listing.Listing, max int) []listing.Listing {
	if max <= 0 || len(results) <= max {
		return results
	}

	out := make([]listing.Listing, 0, max)
	step := float64(len(results)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(results) {
			idx = len(results) - 1
		}
		out = append(out, results[idx])
	}
	return out
}

func writeListingsCSV(path string, results []listing.Listing) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"first_seen_at", "ad_id", "title", "price", "price_value", "posted_at", "url", "image_url"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, l := range results {
		priceValue := ""
		if l.PriceValue != nil {
			priceValue = strconv.FormatInt(*l.PriceValue, 10)
		}
		record := []string{
			l.FirstSeenAt.UTC().Format(time.RFC3339),
			l.AdID,
			l.Title,
			l.PriceDisplay,
			priceValue,
			l.PostedAt,
			l.URL,
			l.ImageURL,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

// writeListingsPNG charts the asking price of new finds over the time they
// were first seen. Results without a parseable price are skipped.
func writeListingsPNG(path, term string, results []listing.Listing) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, 0, len(results))
	prices := make([]float64, 0, len(results))
	for _, l := range results {
		if l.PriceValue == nil {
			continue
		}
		x = append(x, l.FirstSeenAt)
		prices = append(prices, float64(*l.PriceValue))
	}
	if len(prices) < 2 {
		return fmt.Errorf("need at least 2 priced results to chart, have %d", len(prices))
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price (EUR)",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    term,
				XValues: x,
				YValues: prices,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
