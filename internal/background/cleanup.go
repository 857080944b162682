package background

import (
	"context"
	"log/slog"
	"time"
)

// AttemptReaper deletes settled rate-limit records
type AttemptReaper interface {
	Reap(ctx context.Context) (int64, error)
}

// CodeReaper deletes used or expired one-time codes
type CodeReaper interface {
	ReapExpired(ctx context.Context) (int64, error)
}

// ReapStats reports how many rows one maintenance pass removed
type ReapStats struct {
	AttemptsDeleted int64 `json:"attempts_deleted"`
	CodesDeleted    int64 `json:"codes_deleted"`
}

// Reaper periodically removes settled attempt records and dead one-time
// codes. Correctness never depends on it running; expiry and window checks
// are evaluated at read time.
type Reaper struct {
	attempts AttemptReaper
	codes    CodeReaper
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewReaper creates a new reaper
func NewReaper(attempts AttemptReaper, codes CodeReaper, logger *slog.Logger, interval time.Duration) *Reaper {
	return &Reaper{
		attempts: attempts,
		codes:    codes,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic maintenance task
func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Run immediately on startup
	r.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-r.stopCh:
			r.logger.Info("reaper stopped")
			return
		case <-ctx.Done():
			r.logger.Info("reaper context cancelled")
			return
		}
	}
}

// RunOnce executes a single maintenance pass. Also invoked by the
// cron-triggered reap endpoint. Partial failure is tolerated; each target is
// reaped independently.
func (r *Reaper) RunOnce(ctx context.Context) ReapStats {
	reapCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var stats ReapStats

	deleted, err := r.attempts.Reap(reapCtx)
	if err != nil {
		r.logger.Error("failed to reap attempt records", slog.Any("error", err))
	} else {
		stats.AttemptsDeleted = deleted
	}

	deleted, err = r.codes.ReapExpired(reapCtx)
	if err != nil {
		r.logger.Error("failed to reap one-time codes", slog.Any("error", err))
	} else {
		stats.CodesDeleted = deleted
	}

	return stats
}

// Stop signals the reaper to stop
func (r *Reaper) Stop() {
	close(r.stopCh)
}
