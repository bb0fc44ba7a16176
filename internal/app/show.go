package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Show prints the stored results for a term, newest first.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
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

	results, err := store.ListForTerm(ctx, int64(opts.TermID), opts.Limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintf(os.Stdout, "no results stored for term %q\n", term.Term)
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "First seen (UTC)\tAd\tTitle\tPrice\tPosted\tURL")

	for _, l := range results {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			l.FirstSeenAt.UTC().Format(time.RFC3339),
			l.AdID,
			sanitizeInline(l.Title),
			l.PriceDisplay,
			sanitizeInline(l.PostedAt),
			l.URL,
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
