package services

import (
	"context"
	"log/slog"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/google/uuid"
)

// AdmissionController is the rate-limiter surface the orchestrator needs
type AdmissionController interface {
	CheckAdmission(ctx context.Context, identifier string) Admission
	RecordOutcome(ctx context.Context, identifier string, success bool)
}

// CredentialVerifier is the credential-check surface the orchestrator needs
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (VerifyOutcome, error)
	UpsertFederatedIdentity(ctx context.Context, identity FederatedIdentity) (*models.User, error)
}

// ActivityRecorder appends audit records as a side effect of sign-in decisions
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry)
}

// RequestMeta carries the per-request context every sign-in decision needs
type RequestMeta struct {
	SourceIP  string
	UserAgent string
}

// SignInService composes the two rate limiters, the credential verifier and
// the activity recorder into the end-to-end login decision
type SignInService struct {
	ipLimiter    AdmissionController
	emailLimiter AdmissionController
	verifier     CredentialVerifier
	activity     ActivityRecorder
	timingDelay  *auth.TimingDelay
	logger       *slog.Logger
}

// NewSignInService creates a new SignInService
func NewSignInService(
	ipLimiter, emailLimiter AdmissionController,
	verifier CredentialVerifier,
	activity ActivityRecorder,
	timingDelay *auth.TimingDelay,
	logger *slog.Logger,
) *SignInService {
	return &SignInService{
		ipLimiter:    ipLimiter,
		emailLimiter: emailLimiter,
		verifier:     verifier,
		activity:     activity,
		timingDelay:  timingDelay,
		logger:       logger,
	}
}

// SignIn runs the credential sign-in decision. On rejection the returned
// error is one of models.ErrUnauthorized, *models.ThrottledError, or
// models.ErrInternalServer; the caller maps all of them to generic
// user-facing messages.
func (s *SignInService) SignIn(ctx context.Context, email, password string, meta RequestMeta) (*models.User, error) {
	email = NormalizeEmail(email)

	// Both identifiers are checked independently; denial by either rejects.
	// The order is irrelevant - neither check depends on the other.
	ipAdm := s.ipLimiter.CheckAdmission(ctx, meta.SourceIP)
	emailAdm := s.emailLimiter.CheckAdmission(ctx, email)

	if !ipAdm.Allowed || !emailAdm.Allowed {
		s.activity.Record(ctx, ActivityEntry{
			Action:      models.ActivityActionRateLimitExceeded,
			Category:    models.ActivityCategorySecurity,
			Description: "sign-in attempt rejected by rate limiter",
			SourceIP:    meta.SourceIP,
			UserAgent:   meta.UserAgent,
			Success:     false,
		})

		// Surface only the denying limiter's expiry, never which limiter
		throttled := &models.ThrottledError{}
		if !ipAdm.Allowed {
			throttled.RetryAt = ipAdm.BlockedUntil
		} else {
			throttled.RetryAt = emailAdm.BlockedUntil
		}
		return nil, throttled
	}

	outcome, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		// Storage fault mid-verification: no outcome to feed the limiters
		return nil, models.ErrInternalServer
	}

	success := outcome.Kind == OutcomeSuccess
	s.ipLimiter.RecordOutcome(ctx, meta.SourceIP, success)
	s.emailLimiter.RecordOutcome(ctx, email, success)

	if !success {
		s.activity.Record(ctx, ActivityEntry{
			ActorID:     actorIDOf(outcome.User),
			Action:      models.ActivityActionFailedLogin,
			Category:    models.ActivityCategorySecurity,
			Description: "credential sign-in rejected",
			SourceIP:    meta.SourceIP,
			UserAgent:   meta.UserAgent,
			Metadata: models.ActivityMetadata{
				"reason": string(outcome.Kind),
			},
			Success: false,
		})
		s.timingDelay.Wait(false)
		return nil, models.ErrUnauthorized
	}

	s.activity.Record(ctx, ActivityEntry{
		ActorID:     actorIDOf(outcome.User),
		Action:      models.ActivityActionLogin,
		Category:    models.ActivityCategorySecurity,
		Description: "credential sign-in",
		SourceIP:    meta.SourceIP,
		UserAgent:   meta.UserAgent,
		Success:     true,
	})
	s.timingDelay.Wait(true)

	return outcome.User, nil
}

// FederatedSignIn resolves a provider-verified identity to a local user.
// The rate limiters are not consulted - the provider already gated the
// authentication - but the event is still recorded.
func (s *SignInService) FederatedSignIn(ctx context.Context, identity FederatedIdentity, meta RequestMeta) (*models.User, error) {
	user, err := s.verifier.UpsertFederatedIdentity(ctx, identity)
	if err != nil {
		return nil, models.ErrInternalServer
	}

	s.activity.Record(ctx, ActivityEntry{
		ActorID:     actorIDOf(user),
		Action:      models.ActivityActionLogin,
		Category:    models.ActivityCategorySecurity,
		Description: "federated sign-in",
		SourceIP:    meta.SourceIP,
		UserAgent:   meta.UserAgent,
		Metadata: models.ActivityMetadata{
			"provider": identity.Provider,
		},
		Success: true,
	})

	return user, nil
}

// actorIDOf extracts an activity actor id from a user, tolerating nil
func actorIDOf(user *models.User) *uuid.UUID {
	if user == nil {
		return nil
	}
	id, err := uuid.Parse(user.ID)
	if err != nil {
		return nil
	}
	return &id
}
