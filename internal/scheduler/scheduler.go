package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/i474232898/crop-recommendation/internal/metrics"
)

const jobTimeout = 30 * time.Second

// Refresher refreshes the market board and reports how many crops were updated.
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// Scheduler periodically refreshes market quotes.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	logger    zerolog.Logger
}

// New creates a new Scheduler.
func New(refresher Refresher, interval time.Duration, logger zerolog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		refresher: refresher,
		interval:  interval,
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start schedules the refresh job, runs it once immediately, and starts the
// underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().StartImmediately().Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info().Int("interval_minutes", minutes).Msg("market refresh scheduled")
	return nil
}

// RunOnce performs one refresh with a bounded timeout.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	updated, err := s.refresher.Refresh(ctx)
	if err != nil {
		metrics.MarketBoardRefreshes.WithLabelValues("error").Inc()
		s.logger.Warn().Err(err).Int("updated", updated).Msg("market refresh finished with errors")
		return
	}

	metrics.MarketBoardRefreshes.WithLabelValues("success").Inc()
	s.logger.Debug().Int("updated", updated).Dur("took", time.Since(start)).Msg("market refresh completed")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
