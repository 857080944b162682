package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
	pkgauth "github.com/BradenHooton/gatehouse/pkg/auth"
	pkglogger "github.com/BradenHooton/gatehouse/pkg/logger"
)

// OTPManager is the one-time-code surface the account flows need
type OTPManager interface {
	Issue(ctx context.Context, email, purpose string) error
	Consume(ctx context.Context, email, purpose, presented string) (ConsumeResult, error)
}

// AccountService owns the flows that sit on top of the OTP lifecycle:
// registration, email verification and password reset. The purpose-specific
// side effects of a consumed code (activating the account, replacing the
// password hash) live here, not in the OTP manager.
type AccountService struct {
	userRepo UserRepository
	otp      OTPManager
	activity ActivityRecorder
	logger   *slog.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(userRepo UserRepository, otp OTPManager, activity ActivityRecorder, logger *slog.Logger) *AccountService {
	return &AccountService{
		userRepo: userRepo,
		otp:      otp,
		activity: activity,
		logger:   logger,
	}
}

// Register creates an inactive credential record and issues a verification
// code. The account cannot sign in until the code is consumed.
func (s *AccountService) Register(ctx context.Context, email, password, name string, meta RequestMeta) error {
	email = NormalizeEmail(email)

	if err := pkgauth.ValidatePassword(password); err != nil {
		return err
	}

	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration for existing email",
			slog.String("email", pkglogger.SanitizedEmail(email)))
		return models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check for existing user", slog.Any("error", err))
		return models.ErrInternalServer
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	user, err := s.userRepo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Active:       false,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.activity.Record(ctx, ActivityEntry{
		ActorID:     actorIDOf(user),
		Action:      models.ActivityActionRegister,
		Category:    models.ActivityCategoryAccount,
		Description: "account registered, verification pending",
		SourceIP:    meta.SourceIP,
		UserAgent:   meta.UserAgent,
		Success:     true,
	})

	return s.otp.Issue(ctx, email, models.OTPPurposeEmailVerification)
}

// RequestOTP issues a fresh code for (email, purpose). For unknown emails it
// silently succeeds so the endpoint cannot be used to probe for accounts;
// only delivery failures surface.
func (s *AccountService) RequestOTP(ctx context.Context, email, purpose string, meta RequestMeta) error {
	email = NormalizeEmail(email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("otp requested for unknown email",
				slog.String("email", pkglogger.SanitizedEmail(email)),
				slog.String("purpose", purpose))
			return nil
		}
		s.logger.Error("failed to look up user for otp request", slog.Any("error", err))
		return models.ErrInternalServer
	}

	// Nothing to verify on an already-active account
	if purpose == models.OTPPurposeEmailVerification && user.Active {
		return nil
	}

	if err := s.otp.Issue(ctx, email, purpose); err != nil {
		return err
	}

	s.activity.Record(ctx, ActivityEntry{
		ActorID:     actorIDOf(user),
		Action:      models.ActivityActionOTPIssued,
		Category:    models.ActivityCategorySecurity,
		Description: "one-time code issued",
		SourceIP:    meta.SourceIP,
		UserAgent:   meta.UserAgent,
		Metadata: models.ActivityMetadata{
			"purpose": purpose,
		},
		Success: true,
	})

	return nil
}

// VerifyEmail consumes a verification code and activates the account.
// If activation fails after the code was burned the user must request a new
// code; the code is never resurrected.
func (s *AccountService) VerifyEmail(ctx context.Context, email, code string, meta RequestMeta) error {
	email = NormalizeEmail(email)

	result, err := s.otp.Consume(ctx, email, models.OTPPurposeEmailVerification, code)
	if err != nil {
		return models.ErrInternalServer
	}
	if !result.OK {
		s.activity.Record(ctx, ActivityEntry{
			Action:      models.ActivityActionEmailVerified,
			Category:    models.ActivityCategoryAccount,
			Description: "email verification rejected",
			SourceIP:    meta.SourceIP,
			UserAgent:   meta.UserAgent,
			Metadata: models.ActivityMetadata{
				"reason": result.Reason,
			},
			Success: false,
		})
		return models.ErrUnauthorized
	}

	if err := s.userRepo.ActivateByEmail(ctx, email, time.Now()); err != nil {
		s.logger.Error("failed to activate account after verification",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.activity.Record(ctx, ActivityEntry{
		Action:      models.ActivityActionEmailVerified,
		Category:    models.ActivityCategoryAccount,
		Description: "email verified",
		SourceIP:    meta.SourceIP,
		UserAgent:   meta.UserAgent,
		Success:     true,
	})

	return nil
}

// ResetPassword consumes a reset code and replaces the stored hash. The new
// password is validated before the code is touched so a weak password does
// not burn a valid code. A storage fault after consumption leaves the code
// burned; the user requests a new one.
func (s *AccountService) ResetPassword(ctx context.Context, email, code, newPassword string, meta RequestMeta) error {
	email = NormalizeEmail(email)

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	result, err := s.otp.Consume(ctx, email, models.OTPPurposePasswordReset, code)
	if err != nil {
		return models.ErrInternalServer
	}
	if !result.OK {
		s.activity.Record(ctx, ActivityEntry{
			Action:      models.ActivityActionPasswordReset,
			Category:    models.ActivityCategorySecurity,
			Description: "password reset rejected",
			SourceIP:    meta.SourceIP,
			UserAgent:   meta.UserAgent,
			Metadata: models.ActivityMetadata{
				"reason": result.Reason,
			},
			Success: false,
		})
		return models.ErrUnauthorized
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.userRepo.UpdatePasswordByEmail(ctx, email, hash); err != nil {
		s.logger.Error("failed to update password after reset",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.activity.Record(ctx, ActivityEntry{
		Action:      models.ActivityActionPasswordReset,
		Category:    models.ActivityCategorySecurity,
		Description: "password reset completed",
		SourceIP:    meta.SourceIP,
		UserAgent:   meta.UserAgent,
		Success:     true,
	})

	return nil
}
