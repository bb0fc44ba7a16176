package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked on every tick with the tick's wall-clock time.
type TickFunc func(ctx context.Context, now time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Tick         time.Duration
	StartupDelay time.Duration
}

// Scheduler drives the recurring watch loop on a fixed cadence. Tick errors
// are logged and never stop the loop; only context cancellation does.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Tick <= 0 {
		panic("scheduler tick must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the tick function every interval until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	ticker := time.NewTicker(s.opts.Tick)
	defer ticker.Stop()

	for {
		now := time.Now()
		s.logger.Debug().Time("tick", now).Msg("executing scheduled tick")

		if err := tick(ctx, now); err != nil {
			s.logger.Error().Err(err).Msg("tick execution failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
