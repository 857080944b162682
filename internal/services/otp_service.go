package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
	pkglogger "github.com/BradenHooton/gatehouse/pkg/logger"
	"github.com/jackc/pgx/v5"
)

// OTPRepository defines the interface for one-time code operations
type OTPRepository interface {
	InvalidateActiveTx(ctx context.Context, tx pgx.Tx, email, purpose string) (int64, error)
	CreateTx(ctx context.Context, tx pgx.Tx, code *models.OTPCode) error
	ConsumeIfValid(ctx context.Context, email, purpose, code string, now time.Time) (*models.OTPCode, error)
	GetActive(ctx context.Context, email, purpose, code string) (*models.OTPCode, error)
	GetLatestActive(ctx context.Context, email, purpose string) (*models.OTPCode, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// TxRunner runs a function inside one database transaction
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error
}

// EmailSender delivers one-time codes out of band. Synchronous and fallible;
// a failed send must abort the issue operation.
type EmailSender interface {
	SendOTP(ctx context.Context, to, purpose, code string, expiresAt time.Time) error
}

// Consume rejection reasons
const (
	OTPReasonInvalidOrExpired = "invalid_or_expired"
	OTPReasonExpired          = "expired"
)

// ConsumeResult reports whether a presented code was accepted. Reason is for
// the audit trail; callers collapse every rejection to one generic message.
type ConsumeResult struct {
	OK     bool
	Reason string
}

// OTPService manages the one-time code lifecycle for email verification and
// password reset. Per (email, purpose) pair at most one live code exists.
type OTPService struct {
	db             TxRunner
	repo           OTPRepository
	email          EmailSender
	logger         *slog.Logger
	expiry         time.Duration
	resendCooldown time.Duration
	now            func() time.Time
}

// NewOTPService creates a new OTPService
func NewOTPService(db TxRunner, repo OTPRepository, email EmailSender, logger *slog.Logger, expiry, resendCooldown time.Duration) *OTPService {
	return &OTPService{
		db:             db,
		repo:           repo,
		email:          email,
		logger:         logger,
		expiry:         expiry,
		resendCooldown: resendCooldown,
		now:            time.Now,
	}
}

// generateCode returns a uniformly random 6-digit code from crypto/rand
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Issue invalidates any live code for (email, purpose), generates a fresh
// 6-digit code and persists it - but only if delivery succeeds. Invalidation,
// insert and delivery share one transaction, so a failed send rolls back and
// strands nothing.
//
// Reissuing inside the resend cooldown is a silent no-op so the endpoint
// cannot be used to spam a mailbox; callers respond identically either way.
func (s *OTPService) Issue(ctx context.Context, email, purpose string) error {
	if !models.ValidOTPPurpose(purpose) {
		return fmt.Errorf("unknown otp purpose %q", purpose)
	}

	email = NormalizeEmail(email)

	if latest, err := s.repo.GetLatestActive(ctx, email, purpose); err == nil {
		if s.now().Sub(latest.CreatedAt) < s.resendCooldown {
			s.logger.Info("otp reissue inside cooldown, skipping",
				slog.String("email", pkglogger.SanitizedEmail(email)),
				slog.String("purpose", purpose))
			return nil
		}
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check for live otp code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	code, err := generateCode()
	if err != nil {
		s.logger.Error("failed to generate otp code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := s.now().Add(s.expiry)

	err = s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := s.repo.InvalidateActiveTx(ctx, tx, email, purpose); err != nil {
			return err
		}

		rec := &models.OTPCode{
			Email:     email,
			Code:      code,
			Purpose:   purpose,
			ExpiresAt: expiresAt,
		}
		if err := s.repo.CreateTx(ctx, tx, rec); err != nil {
			return err
		}

		// Delivery inside the transaction: a failed send rolls the insert
		// back, so the code is never persisted undeliverable
		if err := s.email.SendOTP(ctx, email, purpose, code, expiresAt); err != nil {
			return fmt.Errorf("%w: %s", models.ErrDeliveryFailed, err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrDeliveryFailed) {
			s.logger.Error("otp delivery failed",
				slog.String("email", pkglogger.SanitizedEmail(email)),
				slog.String("purpose", purpose),
				slog.Any("error", err))
			return models.ErrDeliveryFailed
		}
		s.logger.Error("failed to issue otp code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("otp code issued",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("purpose", purpose),
		slog.Time("expires_at", expiresAt))

	return nil
}

// Consume marks a matching live code as used, exactly once. The repository's
// conditional update is the gate: of two concurrent consumers with the same
// valid code only one observes OK. Unlike the admission check, storage faults
// here fail closed - a replayable reset code is worse than a retry.
func (s *OTPService) Consume(ctx context.Context, email, purpose, presented string) (ConsumeResult, error) {
	email = NormalizeEmail(email)
	now := s.now()

	_, err := s.repo.ConsumeIfValid(ctx, email, purpose, presented, now)
	if err == nil {
		s.logger.Info("otp code consumed",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.String("purpose", purpose))
		return ConsumeResult{OK: true}, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to consume otp code", slog.Any("error", err))
		return ConsumeResult{}, err
	}

	// Distinguish expired from wrong/absent for the audit trail only.
	// Callers must not reveal which one occurred.
	rec, err := s.repo.GetActive(ctx, email, purpose, presented)
	if err == nil && rec.IsExpired() {
		return ConsumeResult{OK: false, Reason: OTPReasonExpired}, nil
	}
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to classify otp rejection", slog.Any("error", err))
		return ConsumeResult{}, err
	}

	return ConsumeResult{OK: false, Reason: OTPReasonInvalidOrExpired}, nil
}

// ReapExpired deletes used or expired codes older than twice the expiry.
// Maintenance only; validity checks never depend on it.
func (s *OTPService) ReapExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-2 * s.expiry)

	deleted, err := s.repo.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.logger.Info("reaped otp codes", slog.Int64("deleted", deleted))
	}

	return deleted, nil
}
