package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Reconciler is the one operation the scheduler triggers.
type Reconciler interface {
	ReconcileStatuses(ctx context.Context) (int, error)
}

// Scheduler periodically invokes status reconciliation. Its lifecycle is
// owned by the composition root; cancelling the context stops the loop, and
// aborting a sweep mid-run is safe because each event's update is independent.
type Scheduler struct {
	reconciler Reconciler
	interval   time.Duration
	logger     *slog.Logger
}

func New(reconciler Reconciler, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		reconciler: reconciler,
		interval:   interval,
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled. One sweep runs immediately on start so a
// restarted process catches up without waiting a full interval.
func (s *Scheduler) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reconciliation scheduler stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.reconciler.ReconcileStatuses(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("status reconciliation failed", "error", err)
	}
}
