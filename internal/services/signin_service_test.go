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
)

func newTestSignInService(ip, email AdmissionController, verifier CredentialVerifier, activity *MockActivityRecorder) *SignInService {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return NewSignInService(ip, email, verifier, activity, nil, logger)
}

func allowAll() *MockAdmissionController {
	return &MockAdmissionController{}
}

func TestSignIn_Success(t *testing.T) {
	verifier := &MockCredentialVerifier{
		VerifyFunc: func(ctx context.Context, email, password string) (VerifyOutcome, error) {
			return VerifyOutcome{Kind: OutcomeSuccess, User: &models.User{ID: "6e8bc430-9c3a-4d9a-8c4e-2b1f0a1e8f00", Email: email}}, nil
		},
	}
	activity := &MockActivityRecorder{}
	svc := newTestSignInService(allowAll(), allowAll(), verifier, activity)

	user, err := svc.SignIn(context.Background(), "user@example.com", "CorrectHorse9!", RequestMeta{SourceIP: "203.0.113.9"})

	require.NoError(t, err)
	require.NotNil(t, user)
	require.Len(t, activity.Entries, 1)
	assert.Equal(t, models.ActivityActionLogin, activity.Entries[0].Action)
	assert.True(t, activity.Entries[0].Success)
	require.NotNil(t, activity.Entries[0].ActorID)
}

func TestSignIn_WrongPasswordIsGenericUnauthorized(t *testing.T) {
	verifier := &MockCredentialVerifier{
		VerifyFunc: func(ctx context.Context, email, password string) (VerifyOutcome, error) {
			return VerifyOutcome{Kind: OutcomeWrongPassword}, nil
		},
	}
	activity := &MockActivityRecorder{}
	svc := newTestSignInService(allowAll(), allowAll(), verifier, activity)

	user, err := svc.SignIn(context.Background(), "user@example.com", "bad", RequestMeta{SourceIP: "203.0.113.9"})

	assert.Nil(t, user)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	require.Len(t, activity.Entries, 1)
	assert.Equal(t, models.ActivityActionFailedLogin, activity.Entries[0].Action)
	assert.Equal(t, string(OutcomeWrongPassword), activity.Entries[0].Metadata["reason"])
}

func TestSignIn_UnknownUserSameErrorAsWrongPassword(t *testing.T) {
	activity := &MockActivityRecorder{}
	verifier := &MockCredentialVerifier{
		VerifyFunc: func(ctx context.Context, email, password string) (VerifyOutcome, error) {
			return VerifyOutcome{Kind: OutcomeNotFound}, nil
		},
	}
	svc := newTestSignInService(allowAll(), allowAll(), verifier, activity)

	_, errNotFound := svc.SignIn(context.Background(), "nobody@example.com", "x", RequestMeta{})

	verifier.VerifyFunc = func(ctx context.Context, email, password string) (VerifyOutcome, error) {
		return VerifyOutcome{Kind: OutcomeWrongPassword}, nil
	}
	_, errWrongPassword := svc.SignIn(context.Background(), "user@example.com", "x", RequestMeta{})

	// The caller cannot distinguish which rejection occurred
	assert.Equal(t, errNotFound, errWrongPassword)
}

func TestSignIn_EmailLimiterDeniesWhileIPAllows(t *testing.T) {
	until := time.Now().Add(15 * time.Minute)
	emailLimiter := &MockAdmissionController{
		CheckAdmissionFunc: func(ctx context.Context, identifier string) Admission {
			return Admission{Allowed: false, BlockedUntil: &until}
		},
	}
	verifier := &MockCredentialVerifier{
		VerifyFunc: func(ctx context.Context, email, password string) (VerifyOutcome, error) {
			t.Fatal("credentials must not be checked when admission is denied")
			return VerifyOutcome{}, nil
		},
	}
	activity := &MockActivityRecorder{}
	svc := newTestSignInService(allowAll(), emailLimiter, verifier, activity)

	user, err := svc.SignIn(context.Background(), "user@example.com", "CorrectHorse9!", RequestMeta{SourceIP: "203.0.113.9"})

	assert.Nil(t, user)
	var throttled *models.ThrottledError
	require.ErrorAs(t, err, &throttled)
	require.NotNil(t, throttled.RetryAt)
	assert.Equal(t, until, *throttled.RetryAt)
	require.Len(t, activity.Entries, 1)
	assert.Equal(t, models.ActivityActionRateLimitExceeded, activity.Entries[0].Action)
}

func TestSignIn_IPLimiterDenialWins(t *testing.T) {
	ipUntil := time.Now().Add(30 * time.Minute)
	ipLimiter := &MockAdmissionController{
		CheckAdmissionFunc: func(ctx context.Context, identifier string) Admission {
			return Admission{Allowed: false, BlockedUntil: &ipUntil}
		},
	}
	svc := newTestSignInService(ipLimiter, allowAll(), &MockCredentialVerifier{}, &MockActivityRecorder{})

	_, err := svc.SignIn(context.Background(), "user@example.com", "x", RequestMeta{SourceIP: "203.0.113.9"})

	var throttled *models.ThrottledError
	require.ErrorAs(t, err, &throttled)
	require.NotNil(t, throttled.RetryAt)
	assert.Equal(t, ipUntil, *throttled.RetryAt)
}

func TestSignIn_OutcomeFeedsBothLimiters(t *testing.T) {
	type recorded struct {
		identifier string
		success    bool
	}
	var ipOutcome, emailOutcome *recorded
	ipLimiter := &MockAdmissionController{
		RecordOutcomeFunc: func(ctx context.Context, identifier string, success bool) {
			ipOutcome = &recorded{identifier, success}
		},
	}
	emailLimiter := &MockAdmissionController{
		RecordOutcomeFunc: func(ctx context.Context, identifier string, success bool) {
			emailOutcome = &recorded{identifier, success}
		},
	}
	verifier := &MockCredentialVerifier{
		VerifyFunc: func(ctx context.Context, email, password string) (VerifyOutcome, error) {
			return VerifyOutcome{Kind: OutcomeWrongPassword}, nil
		},
	}
	svc := newTestSignInService(ipLimiter, emailLimiter, verifier, &MockActivityRecorder{})

	_, _ = svc.SignIn(context.Background(), "User@Example.com", "bad", RequestMeta{SourceIP: "203.0.113.9"})

	require.NotNil(t, ipOutcome)
	assert.Equal(t, "203.0.113.9", ipOutcome.identifier)
	assert.False(t, ipOutcome.success)
	require.NotNil(t, emailOutcome)
	assert.Equal(t, "user@example.com", emailOutcome.identifier)
	assert.False(t, emailOutcome.success)
}

func TestSignIn_StorageFaultDoesNotFeedLimiters(t *testing.T) {
	recordCalled := false
	ipLimiter := &MockAdmissionController{
		RecordOutcomeFunc: func(ctx context.Context, identifier string, success bool) {
			recordCalled = true
		},
	}
	verifier := &MockCredentialVerifier{
		VerifyFunc: func(ctx context.Context, email, password string) (VerifyOutcome, error) {
			return VerifyOutcome{}, errors.New("connection refused")
		},
	}
	svc := newTestSignInService(ipLimiter, allowAll(), verifier, &MockActivityRecorder{})

	_, err := svc.SignIn(context.Background(), "user@example.com", "x", RequestMeta{})

	assert.ErrorIs(t, err, models.ErrInternalServer)
	assert.False(t, recordCalled)
}

func TestFederatedSignIn_SkipsLimitersAndRecords(t *testing.T) {
	checked := false
	ipLimiter := &MockAdmissionController{
		CheckAdmissionFunc: func(ctx context.Context, identifier string) Admission {
			checked = true
			return Admission{Allowed: true}
		},
	}
	verifier := &MockCredentialVerifier{
		UpsertFederatedIdentityFunc: func(ctx context.Context, identity FederatedIdentity) (*models.User, error) {
			return &models.User{ID: "6e8bc430-9c3a-4d9a-8c4e-2b1f0a1e8f00", Email: identity.Email, Active: true}, nil
		},
	}
	activity := &MockActivityRecorder{}
	svc := newTestSignInService(ipLimiter, allowAll(), verifier, activity)

	user, err := svc.FederatedSignIn(context.Background(), FederatedIdentity{
		Provider:          "google",
		ProviderAccountID: "goog-123",
		Email:             "user@example.com",
	}, RequestMeta{SourceIP: "203.0.113.9"})

	require.NoError(t, err)
	require.NotNil(t, user)
	assert.False(t, checked)
	require.Len(t, activity.Entries, 1)
	assert.Equal(t, models.ActivityActionLogin, activity.Entries[0].Action)
	assert.Equal(t, "google", activity.Entries[0].Metadata["provider"])
}
