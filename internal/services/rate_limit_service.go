package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
)

// AttemptRepository defines the interface for identifier attempt state
type AttemptRepository interface {
	Get(ctx context.Context, identifier string) (*models.IdentifierAttempt, error)
	ResetWindow(ctx context.Context, identifier string, now time.Time) error
	Block(ctx context.Context, identifier string, maxAttempts int, until time.Time) (bool, error)
	RecordSuccess(ctx context.Context, identifier string, now time.Time) error
	RecordFailure(ctx context.Context, identifier string, now time.Time) error
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// RateLimitConfig holds the thresholds for one limiter instance
type RateLimitConfig struct {
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

// Admission is the outcome of an admission check
type Admission struct {
	Allowed      bool
	Remaining    int
	BlockedUntil *time.Time
}

// RateLimitService implements sliding-window admission control with a
// temporary block for one class of identifier (IP or email). Two instances
// run side by side with distinct configuration; denial by either rejects the
// attempt.
type RateLimitService struct {
	repo   AttemptRepository
	config RateLimitConfig
	name   string // "ip" or "email"
	logger *slog.Logger
	now    func() time.Time
}

// key namespaces an identifier by limiter name, so the two instances sharing
// one attempt table cannot collide on equal identifier strings.
func (s *RateLimitService) key(identifier string) string {
	return s.name + ":" + identifier
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(repo AttemptRepository, config RateLimitConfig, name string, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		repo:   repo,
		config: config,
		name:   name,
		logger: logger,
		now:    time.Now,
	}
}

// CheckAdmission decides whether an identifier may proceed with an attempt.
// Not a pure read: crossing the attempt threshold sets the block here.
// Storage faults fail open with full quota - a transient outage must not lock
// every user out of the sign-in gate.
func (s *RateLimitService) CheckAdmission(ctx context.Context, identifier string) Admission {
	now := s.now()
	key := s.key(identifier)

	rec, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return Admission{Allowed: true, Remaining: s.config.MaxAttempts - 1}
		}
		s.logger.Error("admission check storage fault, failing open",
			slog.String("limiter", s.name),
			slog.Any("error", err))
		return Admission{Allowed: true, Remaining: s.config.MaxAttempts}
	}

	// An active block denies regardless of the attempt count
	if rec.BlockedAt(now) {
		return Admission{Allowed: false, Remaining: 0, BlockedUntil: rec.BlockedUntil}
	}

	// Window lapsed: reset the counter. Read-then-write; two concurrent
	// callers may both reset and both be admitted at the boundary, which is
	// accepted over taking a row lock on every check.
	if rec.WindowExpiredAt(now, s.config.Window) {
		if err := s.repo.ResetWindow(ctx, key, now); err != nil {
			s.logger.Error("failed to reset attempt window",
				slog.String("limiter", s.name),
				slog.Any("error", err))
		}
		return Admission{Allowed: true, Remaining: s.config.MaxAttempts - 1}
	}

	// Threshold crossed with no block yet: this check sets the block
	if rec.Attempts >= s.config.MaxAttempts {
		until := now.Add(s.config.BlockDuration)
		blocked, err := s.repo.Block(ctx, key, s.config.MaxAttempts, until)
		if err != nil {
			s.logger.Error("failed to set block, failing open",
				slog.String("limiter", s.name),
				slog.Any("error", err))
			return Admission{Allowed: true, Remaining: s.config.MaxAttempts}
		}
		if blocked {
			s.logger.Warn("identifier blocked",
				slog.String("limiter", s.name),
				slog.Int("attempts", rec.Attempts),
				slog.Time("blocked_until", until))
		}
		return Admission{Allowed: false, Remaining: 0, BlockedUntil: &until}
	}

	return Admission{Allowed: true, Remaining: s.config.MaxAttempts - rec.Attempts}
}

// RecordOutcome updates the counter after an attempt resolved. Recording is
// best-effort telemetry for the limiter, not the gate itself, so storage
// faults are logged and swallowed.
func (s *RateLimitService) RecordOutcome(ctx context.Context, identifier string, success bool) {
	now := s.now()
	key := s.key(identifier)

	var err error
	if success {
		err = s.repo.RecordSuccess(ctx, key, now)
	} else {
		err = s.repo.RecordFailure(ctx, key, now)
	}

	if err != nil {
		s.logger.Error("failed to record attempt outcome",
			slog.String("limiter", s.name),
			slog.Bool("success", success),
			slog.Any("error", err))
	}
}

// Reap deletes records with zero attempts older than twice the window.
// An optimization, not a correctness requirement; idempotent and safe to run
// concurrently with live traffic.
func (s *RateLimitService) Reap(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-2 * s.config.Window)

	deleted, err := s.repo.DeleteStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.logger.Info("reaped stale attempt records",
			slog.String("limiter", s.name),
			slog.Int64("deleted", deleted))
	}

	return deleted, nil
}
