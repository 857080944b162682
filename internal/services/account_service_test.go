package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/gatehouse/internal/models"
	pkgauth "github.com/BradenHooton/gatehouse/pkg/auth"
)

func newTestAccountService(userRepo UserRepository, otp OTPManager, activity *MockActivityRecorder) *AccountService {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return NewAccountService(userRepo, otp, activity, logger)
}

func TestRegister_CreatesInactiveUserAndIssuesCode(t *testing.T) {
	var created *models.User
	userRepo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "6e8bc430-9c3a-4d9a-8c4e-2b1f0a1e8f00"
			created = user
			return user, nil
		},
	}
	var issuedPurpose string
	otp := &MockOTPManager{
		IssueFunc: func(ctx context.Context, email, purpose string) error {
			issuedPurpose = purpose
			return nil
		},
	}
	activity := &MockActivityRecorder{}
	svc := newTestAccountService(userRepo, otp, activity)

	err := svc.Register(context.Background(), "New@Example.com", "CorrectHorse9!", "New User", RequestMeta{})

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "new@example.com", created.Email)
	assert.False(t, created.Active)
	assert.NotEmpty(t, created.PasswordHash)
	assert.Equal(t, models.OTPPurposeEmailVerification, issuedPurpose)
	require.Len(t, activity.Entries, 1)
	assert.Equal(t, models.ActivityActionRegister, activity.Entries[0].Action)
}

func TestRegister_WeakPasswordRejectedBeforeStorage(t *testing.T) {
	userRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			t.Fatal("validation must run before any storage access")
			return nil, nil
		},
	}
	svc := newTestAccountService(userRepo, &MockOTPManager{}, &MockActivityRecorder{})

	err := svc.Register(context.Background(), "user@example.com", "short", "User", RequestMeta{})

	var validationErr *pkgauth.PasswordValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestRegister_ExistingEmailConflicts(t *testing.T) {
	userRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: "u1", Email: email}, nil
		},
	}
	svc := newTestAccountService(userRepo, &MockOTPManager{}, &MockActivityRecorder{})

	err := svc.Register(context.Background(), "user@example.com", "CorrectHorse9!", "User", RequestMeta{})

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestRequestOTP_UnknownEmailSilentlySucceeds(t *testing.T) {
	issued := false
	otp := &MockOTPManager{
		IssueFunc: func(ctx context.Context, email, purpose string) error {
			issued = true
			return nil
		},
	}
	svc := newTestAccountService(&MockUserRepository{}, otp, &MockActivityRecorder{})

	err := svc.RequestOTP(context.Background(), "nobody@example.com", models.OTPPurposePasswordReset, RequestMeta{})

	require.NoError(t, err)
	assert.False(t, issued)
}

func TestRequestOTP_AlreadyActiveSkipsVerification(t *testing.T) {
	userRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: "u1", Email: email, Active: true}, nil
		},
	}
	issued := false
	otp := &MockOTPManager{
		IssueFunc: func(ctx context.Context, email, purpose string) error {
			issued = true
			return nil
		},
	}
	svc := newTestAccountService(userRepo, otp, &MockActivityRecorder{})

	err := svc.RequestOTP(context.Background(), "user@example.com", models.OTPPurposeEmailVerification, RequestMeta{})

	require.NoError(t, err)
	assert.False(t, issued)
}

func TestRequestOTP_ActiveAccountStillGetsResetCode(t *testing.T) {
	userRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: "6e8bc430-9c3a-4d9a-8c4e-2b1f0a1e8f00", Email: email, Active: true}, nil
		},
	}
	issued := false
	otp := &MockOTPManager{
		IssueFunc: func(ctx context.Context, email, purpose string) error {
			issued = true
			return nil
		},
	}
	activity := &MockActivityRecorder{}
	svc := newTestAccountService(userRepo, otp, activity)

	err := svc.RequestOTP(context.Background(), "user@example.com", models.OTPPurposePasswordReset, RequestMeta{})

	require.NoError(t, err)
	assert.True(t, issued)
	require.Len(t, activity.Entries, 1)
	assert.Equal(t, models.ActivityActionOTPIssued, activity.Entries[0].Action)
}

func TestVerifyEmail_ActivatesOnValidCode(t *testing.T) {
	var activatedEmail string
	userRepo := &MockUserRepository{
		ActivateByEmailFunc: func(ctx context.Context, email string, verifiedAt time.Time) error {
			activatedEmail = email
			return nil
		},
	}
	otp := &MockOTPManager{
		ConsumeFunc: func(ctx context.Context, email, purpose, presented string) (ConsumeResult, error) {
			assert.Equal(t, models.OTPPurposeEmailVerification, purpose)
			return ConsumeResult{OK: true}, nil
		},
	}
	activity := &MockActivityRecorder{}
	svc := newTestAccountService(userRepo, otp, activity)

	err := svc.VerifyEmail(context.Background(), "User@Example.com", "123456", RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, "user@example.com", activatedEmail)
	require.Len(t, activity.Entries, 1)
	assert.Equal(t, models.ActivityActionEmailVerified, activity.Entries[0].Action)
	assert.True(t, activity.Entries[0].Success)
}

func TestVerifyEmail_RejectedCodeDoesNotActivate(t *testing.T) {
	userRepo := &MockUserRepository{
		ActivateByEmailFunc: func(ctx context.Context, email string, verifiedAt time.Time) error {
			t.Fatal("must not activate on a rejected code")
			return nil
		},
	}
	activity := &MockActivityRecorder{}
	svc := newTestAccountService(userRepo, &MockOTPManager{}, activity)

	err := svc.VerifyEmail(context.Background(), "user@example.com", "000000", RequestMeta{})

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	require.Len(t, activity.Entries, 1)
	assert.False(t, activity.Entries[0].Success)
	assert.Equal(t, OTPReasonInvalidOrExpired, activity.Entries[0].Metadata["reason"])
}

func TestResetPassword_ReplacesHash(t *testing.T) {
	var updatedEmail, updatedHash string
	userRepo := &MockUserRepository{
		UpdatePasswordByEmailFunc: func(ctx context.Context, email, passwordHash string) error {
			updatedEmail = email
			updatedHash = passwordHash
			return nil
		},
	}
	otp := &MockOTPManager{
		ConsumeFunc: func(ctx context.Context, email, purpose, presented string) (ConsumeResult, error) {
			assert.Equal(t, models.OTPPurposePasswordReset, purpose)
			return ConsumeResult{OK: true}, nil
		},
	}
	svc := newTestAccountService(userRepo, otp, &MockActivityRecorder{})

	err := svc.ResetPassword(context.Background(), "user@example.com", "123456", "FreshHorse7!", RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, "user@example.com", updatedEmail)
	assert.NoError(t, pkgauth.ComparePassword(updatedHash, "FreshHorse7!"))
}

func TestResetPassword_WeakPasswordDoesNotBurnCode(t *testing.T) {
	consumed := false
	otp := &MockOTPManager{
		ConsumeFunc: func(ctx context.Context, email, purpose, presented string) (ConsumeResult, error) {
			consumed = true
			return ConsumeResult{OK: true}, nil
		},
	}
	svc := newTestAccountService(&MockUserRepository{}, otp, &MockActivityRecorder{})

	err := svc.ResetPassword(context.Background(), "user@example.com", "123456", "weak", RequestMeta{})

	var validationErr *pkgauth.PasswordValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.False(t, consumed)
}

func TestResetPassword_InvalidCodeRejected(t *testing.T) {
	userRepo := &MockUserRepository{
		UpdatePasswordByEmailFunc: func(ctx context.Context, email, passwordHash string) error {
			t.Fatal("must not update the password on a rejected code")
			return nil
		},
	}
	svc := newTestAccountService(userRepo, &MockOTPManager{}, &MockActivityRecorder{})

	err := svc.ResetPassword(context.Background(), "user@example.com", "000000", "FreshHorse7!", RequestMeta{})

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestResetPassword_UpdateFaultLeavesCodeBurned(t *testing.T) {
	consumeCalls := 0
	otp := &MockOTPManager{
		ConsumeFunc: func(ctx context.Context, email, purpose, presented string) (ConsumeResult, error) {
			consumeCalls++
			if consumeCalls > 1 {
				return ConsumeResult{OK: false, Reason: OTPReasonInvalidOrExpired}, nil
			}
			return ConsumeResult{OK: true}, nil
		},
	}
	userRepo := &MockUserRepository{
		UpdatePasswordByEmailFunc: func(ctx context.Context, email, passwordHash string) error {
			return errors.New("connection refused")
		},
	}
	svc := newTestAccountService(userRepo, otp, &MockActivityRecorder{})

	err := svc.ResetPassword(context.Background(), "user@example.com", "123456", "FreshHorse7!", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrInternalServer)

	// Retrying with the same code fails: consumption is not rolled back
	err = svc.ResetPassword(context.Background(), "user@example.com", "123456", "FreshHorse7!", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
