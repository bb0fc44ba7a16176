package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"marktplaats-watcher/internal/scheduler"
)

// Watcher supervises the single background scheduling loop. Start is a
// one-shot latch: repeated calls cannot spawn a second loop.
type Watcher struct {
	sched  *scheduler.Scheduler
	svc    *Service
	logger zerolog.Logger

	once sync.Once
	done chan struct{}
}

// NewWatcher builds the loop supervisor.
func NewWatcher(sched *scheduler.Scheduler, svc *Service, logger zerolog.Logger) *Watcher {
	return &Watcher{
		sched:  sched,
		svc:    svc,
		logger: logger.With().Str("component", "watcher").Logger(),
		done:   make(chan struct{}),
	}
}

// Start launches the background loop exactly once and returns immediately.
func (w *Watcher) Start(ctx context.Context) {
	w.once.Do(func() {
		go func() {
			defer close(w.done)
			err := w.sched.Run(ctx, w.svc.Tick)
			if err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error().Err(err).Msg("background loop terminated")
				return
			}
			w.logger.Info().Msg("background loop stopped")
		}()
	})
}

// Done is closed once the background loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}
