// Package maintenance runs the daily housekeeping job: missing progress
// records are backfilled and the number of due words is reported.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// DefaultAt is the time of day the job runs when none is configured.
const DefaultAt = "00:05"

// Store is the persistence the job needs.
type Store interface {
	EnsureProgressRecords(ctx context.Context) (int, error)
	CountDue(ctx context.Context, today time.Time) (int, error)
}

// Report is the outcome of one run.
type Report struct {
	Backfilled int       `json:"backfilled"`
	Due        int       `json:"due"`
	RanAt      time.Time `json:"ran_at"`
}

// Scheduler manages the daily maintenance job
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     Store
	logger    *zap.Logger
	at        string
	loc       *time.Location
	now       func() time.Time
}

// New creates a scheduler that runs the job every day at the given HH:MM
// in loc. An empty at uses DefaultAt; a nil loc uses the local time zone,
// the same calendar days the session manager uses.
func New(store Store, logger *zap.Logger, at string, loc *time.Location) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if at == "" {
		at = DefaultAt
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		store:     store,
		logger:    logger,
		at:        at,
		loc:       loc,
		now:       time.Now,
	}
}

// Start registers the daily job and starts the scheduler without blocking.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(1).Day().At(s.at).Do(func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("Maintenance run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule maintenance at %q: %w", s.at, err)
	}
	s.scheduler.StartAsync()
	s.logger.Info("Maintenance scheduled", zap.String("at", s.at), zap.String("location", s.loc.String()))
	return nil
}

// Stop terminates the scheduler. Stopping a scheduler that never started
// is allowed.
func (s *Scheduler) Stop() {
	if s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}

// RunOnce performs one maintenance pass immediately.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	now := s.now()
	backfilled, err := s.store.EnsureProgressRecords(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("backfill progress: %w", err)
	}
	due, err := s.store.CountDue(ctx, now)
	if err != nil {
		return Report{}, fmt.Errorf("count due: %w", err)
	}

	s.logger.Info("Maintenance complete",
		zap.Int("backfilled", backfilled),
		zap.Int("due", due),
	)
	return Report{Backfilled: backfilled, Due: due, RanAt: now}, nil
}
