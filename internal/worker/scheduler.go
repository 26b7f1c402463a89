package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/bidwell/internal/jobs"
	"github.com/dukerupert/bidwell/internal/repository"
)

// Scheduler enqueues the daily sweep and job cleanup once the configured
// UTC hour has passed. Both enqueues are keyed by date, so every replica
// can run a scheduler.
type Scheduler struct {
	queries  repository.Querier
	runHour  int
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewScheduler creates a scheduler that checks every interval.
func NewScheduler(queries repository.Querier, runHour int, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		queries:  queries,
		runHour:  runHour,
		interval: interval,
		logger:   logger.With("service", "scheduler"),
		now:      time.Now,
	}
}

// Start runs until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler starting", "run_hour_utc", s.runHour, "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick enqueues today's jobs if the run hour has been reached.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now().UTC()
	if now.Hour() < s.runHour {
		return
	}

	if ok, err := jobs.EnqueueDaily(ctx, s.queries, now); err != nil {
		s.logger.Error("failed to enqueue daily sweep", "error", err)
	} else if ok {
		s.logger.Info("daily sweep enqueued", "date", now.Format(time.DateOnly))
	}

	if _, err := jobs.EnqueueCleanup(ctx, s.queries, now); err != nil {
		s.logger.Error("failed to enqueue job cleanup", "error", err)
	}
}
