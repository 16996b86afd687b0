package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Krumil/hacksignal/internal/domain"
)

// Runner is the pipeline as the scheduler sees it: interval batch runs plus
// the daily digest flush.
type Runner interface {
	Run(ctx context.Context) (*domain.PipelineStats, error)
	FlushDigest(ctx context.Context) (int, error)
}

type Scheduler struct {
	runner     Runner
	interval   time.Duration
	digestHHMM string
	logger     *slog.Logger
}

func NewScheduler(runner Runner, interval time.Duration, digestHHMM string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		digestHHMM: digestHHMM,
		logger:     logger,
	}
}

// Start runs one batch immediately, then batches on every interval tick and
// a digest flush at the configured local time each day. Blocks until the
// context is cancelled. One unit of work runs at a time.
func (s *Scheduler) Start(ctx context.Context) error {
	nextDigest, err := nextRun(time.Now(), s.digestHHMM)
	if err != nil {
		return fmt.Errorf("invalid digest time %q: %w", s.digestHHMM, err)
	}

	s.logger.Info("scheduler started",
		"interval", s.interval,
		"next_digest", nextDigest.Format(time.RFC3339),
	)

	s.runBatch(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	digestTimer := time.NewTimer(time.Until(nextDigest))
	defer digestTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runBatch(ctx)
		case <-digestTimer.C:
			s.runDigest(ctx)
			nextDigest, err = nextRun(time.Now(), s.digestHHMM)
			if err != nil {
				return fmt.Errorf("invalid digest time %q: %w", s.digestHHMM, err)
			}
			digestTimer.Reset(time.Until(nextDigest))
		}
	}
}

func (s *Scheduler) runBatch(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if _, err := s.runner.Run(runCtx); err != nil {
		s.logger.Error("pipeline run failed", "error", err)
	}
}

func (s *Scheduler) runDigest(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	delivered, err := s.runner.FlushDigest(runCtx)
	if err != nil {
		s.logger.Error("digest flush failed", "delivered", delivered, "error", err)
		return
	}
	s.logger.Info("digest flush done", "delivered", delivered)
}

// nextRun computes the next occurrence of the "HH:MM" wall-clock time after
// now, in now's location.
func nextRun(now time.Time, hhmm string) (time.Time, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("expected HH:MM, got %q", hhmm)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid hour in %q", hhmm)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid minute in %q", hhmm)
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}
