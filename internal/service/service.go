package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"marktplaats-watcher/internal/fetcher"
	"marktplaats-watcher/internal/listing"
	"marktplaats-watcher/internal/notify"
	"marktplaats-watcher/internal/settings"
	"marktplaats-watcher/internal/storage"
	"marktplaats-watcher/internal/watchlist"
)

// NotifierFactory builds a notifier from the current settings snapshot. The
// bot credentials live in the operator settings store, so the notifier is
// constructed per run rather than at startup.
type NotifierFactory func(s settings.Settings) notify.Notifier

// Result reports what a single term run did.
type Result struct {
	Fetched  int `json:"fetched"`
	Filtered int `json:"filtered"`
	New      int `json:"new"`
}

// Service orchestrates the fetch-filter-ledger-notify pipeline for watched
// terms, both from the background loop and from manual runs.
type Service struct {
	settings    *settings.Store
	terms       *watchlist.Store
	fetcher     fetcher.Fetcher
	ledger      storage.Ledger
	newNotifier NotifierFactory
	logger      zerolog.Logger
	now         func() time.Time
}

// New constructs the watch service.
func New(settingsStore *settings.Store, termStore *watchlist.Store, f fetcher.Fetcher, ledger storage.Ledger, nf NotifierFactory, logger zerolog.Logger) *Service {
	return &Service{
		settings:    settingsStore,
		terms:       termStore,
		fetcher:     f,
		ledger:      ledger,
		newNotifier: nf,
		logger:      logger.With().Str("component", "service").Logger(),
		now:         time.Now,
	}
}

// Tick runs one scheduling pass: reload both stores, work out which terms are
// due, and run them sequentially in list order. A failing term is logged and
// skipped; its last-run timestamp stays put so the next tick retries it.
func (s *Service) Tick(ctx context.Context, now time.Time) error {
	cfg := s.settings.Load()

	terms, err := s.terms.Load()
	if err != nil {
		return fmt.Errorf("load watch list: %w", err)
	}
	if len(terms) == 0 {
		return nil
	}

	sleepActive := cfg.SleepModeOn() && InSleepWindow(now, cfg.SleepStart, cfg.SleepEnd)

	for _, term := range terms {
		if term.Term == "" {
			continue
		}
		if !Due(term, cfg, sleepActive, now) {
			continue
		}

		res, runErr := s.runTerm(ctx, term, cfg, false)
		if runErr != nil {
			s.logger.Error().Err(runErr).Int("term_id", term.ID).Str("term", term.Term).Msg("scheduled run failed")
			continue
		}

		if err := s.terms.TouchLastRun(term.ID, s.now()); err != nil {
			s.logger.Error().Err(err).Int("term_id", term.ID).Msg("failed to record run completion")
		}

		s.logger.Info().
			Int("term_id", term.ID).
			Str("term", term.Term).
			Int("fetched", res.Fetched).
			Int("filtered", res.Filtered).
			Int("new", res.New).
			Msg("scheduled run complete")
	}

	return nil
}

// RunTermByID executes the pipeline for one term outside the background
// loop. Used by the admin API and the search CLI command.
func (s *Service) RunTermByID(ctx context.Context, id int, manual bool) (Result, error) {
	cfg := s.settings.Load()

	term, err := s.terms.Get(id)
	if err != nil {
		return Result{}, err
	}

	res, err := s.runTerm(ctx, term, cfg, manual)
	if err != nil {
		return res, err
	}

	if err := s.terms.TouchLastRun(term.ID, s.now()); err != nil {
		s.logger.Error().Err(err).Int("term_id", term.ID).Msg("failed to record run completion")
	}
	return res, nil
}

// runTerm is the fetch-filter-ledger-notify pipeline for a single term.
func (s *Service) runTerm(ctx context.Context, term watchlist.Term, cfg settings.Settings, manual bool) (Result, error) {
	limit := term.LimitPerRun
	if limit <= 0 {
		limit = cfg.DefaultLimitPerRun
	}
	limit = watchlist.ClampLimit(limit)

	items := s.fetcher.Fetch(ctx, fetcher.Query{
		Term:     term.Term,
		Postcode: cfg.Postcode,
		RadiusKM: cfg.RadiusKM,
		Limit:    limit,
	})
	// An empty fetch is indistinguishable from a remote failure, so the run
	// counts as failed and is retried on a later tick.
	if len(items) == 0 {
		return Result{}, fmt.Errorf("fetch returned no listings for %q", term.Term)
	}

	filtered := FilterByPrice(items, term.MinPrice, term.MaxPrice)

	fresh, err := s.ledger.InsertNew(ctx, int64(term.ID), filtered)
	if err != nil {
		return Result{Fetched: len(items), Filtered: len(filtered)}, fmt.Errorf("record listings: %w", err)
	}

	res := Result{Fetched: len(items), Filtered: len(filtered), New: len(fresh)}

	s.dispatch(ctx, term, cfg, fresh, manual)
	return res, nil
}

// dispatch applies the notification policy: scheduled runs notify every new
// listing; manual runs notify only when the operator enabled it, and then
// report "no results" when nothing was new. Delivery failures are logged and
// swallowed, never failing the run.
func (s *Service) dispatch(ctx context.Context, term watchlist.Term, cfg settings.Settings, fresh []listing.Listing, manual bool) {
	if manual && !cfg.ManualNotifyOn() {
		return
	}

	notifier := s.newNotifier(cfg)
	if notifier == nil {
		return
	}

	if manual && len(fresh) == 0 {
		msg := fmt.Sprintf("Geen nieuwe resultaten voor %q.", term.Term)
		if err := notifier.NotifyText(ctx, msg); err != nil {
			s.logger.Warn().Err(err).Int("term_id", term.ID).Msg("status notification failed")
		}
		return
	}

	for _, l := range fresh {
		if err := notifier.NotifyListing(ctx, l); err != nil {
			s.logger.Warn().Err(err).Int("term_id", term.ID).Str("ad_id", l.AdID).Msg("listing notification failed")
		}
	}
}
