package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"marktplaats-watcher/internal/config"
	"marktplaats-watcher/internal/fetcher"
	"marktplaats-watcher/internal/httpapi"
	"marktplaats-watcher/internal/notify"
	"marktplaats-watcher/internal/scheduler"
	"marktplaats-watcher/internal/service"
	"marktplaats-watcher/internal/settings"
	"marktplaats-watcher/internal/storage"
	"marktplaats-watcher/internal/watchlist"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() fetcher.Fetcher {
	opts := fetcher.Options{
		BaseURL:   a.Config.Marktplaats.BaseURL,
		UserAgent: a.Config.Marktplaats.UserAgent,
		Timeout:   a.Config.Marktplaats.RequestTimeout,
	}

	if a.Config.Marktplaats.Strategy == "page" {
		return fetcher.NewPage(opts, a.Logger)
	}
	return fetcher.NewSearch(opts, a.Logger)
}

// notifierFactory builds Telegram notifiers from settings snapshots. The bot
// credentials live in the settings store and may change between runs.
func (a *App) notifierFactory() service.NotifierFactory {
	apiBase := a.Config.Telegram.APIBase
	timeout := a.Config.Telegram.RequestTimeout
	logger := a.Logger

	return func(s settings.Settings) notify.Notifier {
		return notify.NewTelegram(s.TelegramBotID, s.TelegramChatID, apiBase, timeout, logger)
	}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, errors.New("database.dsn not configured")
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, store.Close, nil
}

type components struct {
	settings *settings.Store
	terms    *watchlist.Store
	svc      *service.Service
}

func (a *App) buildComponents(store *storage.Store) components {
	settingsStore := settings.NewStore(a.Config.Stores.SettingsPath())
	termStore := watchlist.NewStore(a.Config.Stores.KeywordsPath())
	svc := service.New(settingsStore, termStore, a.newFetcher(), store, a.notifierFactory(), a.Logger)

	return components{settings: settingsStore, terms: termStore, svc: svc}
}

// Run executes the long-running watch service: the background scheduling loop
// plus the admin API listener.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	parts := a.buildComponents(store)

	sched := scheduler.New(scheduler.Options{
		Tick:         a.Config.Scheduler.Tick,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	watcher := service.NewWatcher(sched, parts.svc, a.Logger)
	watcher.Start(ctx)

	api := httpapi.NewServer(parts.settings, parts.terms, store, parts.svc, a.notifierFactory(), a.Config.Marktplaats.BaseURL, a.Logger)
	server := &http.Server{Addr: a.Config.HTTP.ListenAddr, Handler: api.Router()}

	serverErr := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", server.Addr).Msg("admin API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("admin API: %w", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn().Err(err).Msg("admin API shutdown incomplete")
	}

	<-watcher.Done()
	a.Logger.Info().Msg("watch service stopped")
	return nil
}

// SearchOptions configure a manual run of one watched term.
type SearchOptions struct {
	TermID int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	TermID int
	Limit  int
}

// ExportOptions hold parameters for exporting stored results.
type ExportOptions struct {
	TermID    int
	CSVPath   string
	PNGPath   string
	MaxPoints int
}
