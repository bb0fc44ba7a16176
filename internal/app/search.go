package app

import (
	"context"
	"fmt"
	"os"
)

// Search runs the pipeline once for a single term, outside the background
// loop. Notifications follow the manual-run setting.
func (a *App) Search(ctx context.Context, opts SearchOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	parts := a.buildComponents(store)

	term, err := parts.terms.Get(opts.TermID)
	if err != nil {
		return err
	}

	res, err := parts.svc.RunTermByID(ctx, opts.TermID, true)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "term %q: fetched %d, matched %d, new %d\n", term.Term, res.Fetched, res.Filtered, res.New)
	return nil
}
