package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/gatehouse/internal/models"
)

func newTestOTPService(repo OTPRepository, email EmailSender) *OTPService {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return NewOTPService(&MockTxRunner{}, repo, email, logger, 10*time.Minute, time.Minute)
}

func TestIssue_InvalidatesPriorAndPersists(t *testing.T) {
	var invalidated bool
	var created *models.OTPCode
	repo := &MockOTPRepository{
		InvalidateActiveTxFunc: func(ctx context.Context, tx pgx.Tx, email, purpose string) (int64, error) {
			invalidated = true
			return 1, nil
		},
		CreateTxFunc: func(ctx context.Context, tx pgx.Tx, code *models.OTPCode) error {
			created = code
			return nil
		},
	}
	var sentCode string
	sender := &MockEmailSender{
		SendOTPFunc: func(ctx context.Context, to, purpose, code string, expiresAt time.Time) error {
			sentCode = code
			return nil
		},
	}
	svc := newTestOTPService(repo, sender)

	err := svc.Issue(context.Background(), "User@Example.com", models.OTPPurposeEmailVerification)

	require.NoError(t, err)
	assert.True(t, invalidated)
	require.NotNil(t, created)
	assert.Equal(t, "user@example.com", created.Email)
	assert.Len(t, created.Code, 6)
	assert.Equal(t, created.Code, sentCode)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), created.ExpiresAt, 5*time.Second)
}

func TestIssue_DeliveryFailureAbortsTransaction(t *testing.T) {
	var committed bool
	runner := &MockTxRunner{
		WithTransactionFunc: func(ctx context.Context, fn func(pgx.Tx) error) error {
			err := fn(nil)
			if err == nil {
				committed = true
			}
			return err
		},
	}
	repo := &MockOTPRepository{
		CreateTxFunc: func(ctx context.Context, tx pgx.Tx, code *models.OTPCode) error {
			return nil
		},
	}
	sender := &MockEmailSender{
		SendOTPFunc: func(ctx context.Context, to, purpose, code string, expiresAt time.Time) error {
			return errors.New("ses unavailable")
		},
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	svc := NewOTPService(runner, repo, sender, logger, 10*time.Minute, time.Minute)

	err := svc.Issue(context.Background(), "user@example.com", models.OTPPurposePasswordReset)

	assert.ErrorIs(t, err, models.ErrDeliveryFailed)
	assert.False(t, committed)
}

func TestIssue_InsideCooldownIsSilentNoop(t *testing.T) {
	repo := &MockOTPRepository{
		GetLatestActiveFunc: func(ctx context.Context, email, purpose string) (*models.OTPCode, error) {
			return &models.OTPCode{CreatedAt: time.Now().Add(-10 * time.Second)}, nil
		},
		CreateTxFunc: func(ctx context.Context, tx pgx.Tx, code *models.OTPCode) error {
			t.Fatal("must not create a code inside the cooldown")
			return nil
		},
	}
	sent := false
	sender := &MockEmailSender{
		SendOTPFunc: func(ctx context.Context, to, purpose, code string, expiresAt time.Time) error {
			sent = true
			return nil
		},
	}
	svc := newTestOTPService(repo, sender)

	err := svc.Issue(context.Background(), "user@example.com", models.OTPPurposeEmailVerification)

	require.NoError(t, err)
	assert.False(t, sent)
}

func TestIssue_AfterCooldownReissues(t *testing.T) {
	repo := &MockOTPRepository{
		GetLatestActiveFunc: func(ctx context.Context, email, purpose string) (*models.OTPCode, error) {
			return &models.OTPCode{CreatedAt: time.Now().Add(-2 * time.Minute)}, nil
		},
	}
	sent := false
	sender := &MockEmailSender{
		SendOTPFunc: func(ctx context.Context, to, purpose, code string, expiresAt time.Time) error {
			sent = true
			return nil
		},
	}
	svc := newTestOTPService(repo, sender)

	err := svc.Issue(context.Background(), "user@example.com", models.OTPPurposeEmailVerification)

	require.NoError(t, err)
	assert.True(t, sent)
}

func TestConsume_ValidCodeAccepted(t *testing.T) {
	used := time.Now()
	repo := &MockOTPRepository{
		ConsumeIfValidFunc: func(ctx context.Context, email, purpose, code string, now time.Time) (*models.OTPCode, error) {
			return &models.OTPCode{Email: email, Code: code, Purpose: purpose, UsedAt: &used}, nil
		},
	}
	svc := newTestOTPService(repo, &MockEmailSender{})

	result, err := svc.Consume(context.Background(), "user@example.com", models.OTPPurposeEmailVerification, "123456")

	require.NoError(t, err)
	assert.True(t, result.OK)
}

func TestConsume_WrongCodeRejected(t *testing.T) {
	repo := &MockOTPRepository{
		ConsumeIfValidFunc: func(ctx context.Context, email, purpose, code string, now time.Time) (*models.OTPCode, error) {
			return nil, models.ErrNotFound
		},
		GetActiveFunc: func(ctx context.Context, email, purpose, code string) (*models.OTPCode, error) {
			return nil, models.ErrNotFound
		},
	}
	svc := newTestOTPService(repo, &MockEmailSender{})

	result, err := svc.Consume(context.Background(), "user@example.com", models.OTPPurposeEmailVerification, "000000")

	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, OTPReasonInvalidOrExpired, result.Reason)
}

func TestConsume_ExpiredCodeClassified(t *testing.T) {
	repo := &MockOTPRepository{
		ConsumeIfValidFunc: func(ctx context.Context, email, purpose, code string, now time.Time) (*models.OTPCode, error) {
			return nil, models.ErrNotFound
		},
		GetActiveFunc: func(ctx context.Context, email, purpose, code string) (*models.OTPCode, error) {
			return &models.OTPCode{
				Email:     email,
				Code:      code,
				Purpose:   purpose,
				ExpiresAt: time.Now().Add(-time.Minute),
			}, nil
		},
	}
	svc := newTestOTPService(repo, &MockEmailSender{})

	result, err := svc.Consume(context.Background(), "user@example.com", models.OTPPurposePasswordReset, "123456")

	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, OTPReasonExpired, result.Reason)
}

func TestConsume_SecondUseRejected(t *testing.T) {
	consumed := false
	repo := &MockOTPRepository{
		ConsumeIfValidFunc: func(ctx context.Context, email, purpose, code string, now time.Time) (*models.OTPCode, error) {
			if consumed {
				return nil, models.ErrNotFound
			}
			consumed = true
			return &models.OTPCode{Email: email, Code: code, Purpose: purpose, UsedAt: &now}, nil
		},
		GetActiveFunc: func(ctx context.Context, email, purpose, code string) (*models.OTPCode, error) {
			return nil, models.ErrNotFound
		},
	}
	svc := newTestOTPService(repo, &MockEmailSender{})
	ctx := context.Background()

	first, err := svc.Consume(ctx, "user@example.com", models.OTPPurposeEmailVerification, "123456")
	require.NoError(t, err)
	assert.True(t, first.OK)

	second, err := svc.Consume(ctx, "user@example.com", models.OTPPurposeEmailVerification, "123456")
	require.NoError(t, err)
	assert.False(t, second.OK)
}

func TestConsume_StorageFaultFailsClosed(t *testing.T) {
	repo := &MockOTPRepository{
		ConsumeIfValidFunc: func(ctx context.Context, email, purpose, code string, now time.Time) (*models.OTPCode, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := newTestOTPService(repo, &MockEmailSender{})

	result, err := svc.Consume(context.Background(), "user@example.com", models.OTPPurposeEmailVerification, "123456")

	assert.Error(t, err)
	assert.False(t, result.OK)
}

func TestReapExpired_UsesDoubleExpiryCutoff(t *testing.T) {
	var cutoff time.Time
	repo := &MockOTPRepository{
		DeleteExpiredFunc: func(ctx context.Context, c time.Time) (int64, error) {
			cutoff = c
			return 2, nil
		},
	}
	svc := newTestOTPService(repo, &MockEmailSender{})

	deleted, err := svc.ReapExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.WithinDuration(t, time.Now().Add(-20*time.Minute), cutoff, 5*time.Second)
}
