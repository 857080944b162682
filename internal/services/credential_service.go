package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
	pkgauth "github.com/BradenHooton/gatehouse/pkg/auth"
	pkglogger "github.com/BradenHooton/gatehouse/pkg/logger"
)

// UserRepository defines the interface for credential record operations
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	ActivateByEmail(ctx context.Context, email string, verifiedAt time.Time) error
	UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) error
	MergeFederatedProfile(ctx context.Context, id, name, avatarURL string, verifiedAt time.Time) (*models.User, error)
}

// LinkedAccountRepository defines the interface for federated link operations
type LinkedAccountRepository interface {
	Upsert(ctx context.Context, la *models.LinkedAccount) (*models.LinkedAccount, error)
	ExistsForUser(ctx context.Context, userID string) (bool, error)
}

// VerifyOutcomeKind classifies the result of a credential check. Every
// non-success kind maps to the same generic message at the boundary; the
// classification exists for the audit trail only.
type VerifyOutcomeKind string

const (
	OutcomeSuccess       VerifyOutcomeKind = "success"
	OutcomeNotFound      VerifyOutcomeKind = "user_not_found"
	OutcomeNoPasswordSet VerifyOutcomeKind = "no_password_set"
	OutcomeNotActive     VerifyOutcomeKind = "account_not_active"
	OutcomeWrongPassword VerifyOutcomeKind = "wrong_password"
)

// VerifyOutcome is the tagged result of a credential check
type VerifyOutcome struct {
	Kind             VerifyOutcomeKind
	User             *models.User // set only on success
	HasFederatedLink bool         // meaningful only for OutcomeNoPasswordSet
}

// FederatedIdentity carries the provider-verified claim and token material
// presented on a federated sign-in. The email claim is trusted as already
// verified by the provider.
type FederatedIdentity struct {
	Provider          string
	ProviderAccountID string
	Email             string
	Name              string
	AvatarURL         string
	AccessToken       string
	RefreshToken      string
	IDToken           string
	TokenExpiresAt    *time.Time
	Scopes            []string
}

// CredentialService decides whether presented credentials authenticate a user
type CredentialService struct {
	userRepo   UserRepository
	linkedRepo LinkedAccountRepository
	logger     *slog.Logger
}

// NewCredentialService creates a new CredentialService
func NewCredentialService(userRepo UserRepository, linkedRepo LinkedAccountRepository, logger *slog.Logger) *CredentialService {
	return &CredentialService{
		userRepo:   userRepo,
		linkedRepo: linkedRepo,
		logger:     logger,
	}
}

// NormalizeEmail lowercases and trims an email for use as a lookup and
// rate-limiting key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Verify checks email+password against the stored record and classifies every
// negative outcome. A non-nil error means an unexpected storage fault, not a
// rejected credential.
func (s *CredentialService) Verify(ctx context.Context, email, password string) (VerifyOutcome, error) {
	email = NormalizeEmail(email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return VerifyOutcome{Kind: OutcomeNotFound}, nil
		}
		s.logger.Error("failed to look up credential record", slog.Any("error", err))
		return VerifyOutcome{}, err
	}

	// No stored hash means a federated-only (or half-created) account.
	// Never run the password comparison against it.
	if !user.HasPassword() {
		hasLink, err := s.linkedRepo.ExistsForUser(ctx, user.ID)
		if err != nil {
			s.logger.Error("failed to check federated link",
				slog.String("user_id", user.ID),
				slog.Any("error", err))
			return VerifyOutcome{}, err
		}
		return VerifyOutcome{Kind: OutcomeNoPasswordSet, HasFederatedLink: hasLink}, nil
	}

	// Activation is checked before the bcrypt comparison to skip the hashing
	// work; both orders reject, so this is not a security ordering.
	if !user.Active {
		return VerifyOutcome{Kind: OutcomeNotActive}, nil
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		return VerifyOutcome{Kind: OutcomeWrongPassword}, nil
	}

	return VerifyOutcome{Kind: OutcomeSuccess, User: user}, nil
}

// UpsertFederatedIdentity resolves a federated sign-in to a local user,
// creating the credential record if needed, and stores the provider link.
//
// When the claimed email matches an existing password account the two are
// merged silently: the federated sign-in inherits that account, fills any
// missing profile fields and marks it active. Anyone who pre-registered a
// password under someone else's email hands that account to the email's real
// owner on their first federated sign-in - and vice versa. Kept as designed;
// see DESIGN.md before relying on it.
func (s *CredentialService) UpsertFederatedIdentity(ctx context.Context, identity FederatedIdentity) (*models.User, error) {
	email := NormalizeEmail(identity.Email)
	now := time.Now()

	user, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		existingID := user.ID
		user, err = s.userRepo.MergeFederatedProfile(ctx, existingID, identity.Name, identity.AvatarURL, now)
		if err != nil {
			s.logger.Error("failed to merge federated profile",
				slog.String("user_id", existingID),
				slog.Any("error", err))
			return nil, err
		}
	case errors.Is(err, models.ErrNotFound):
		user, err = s.userRepo.Create(ctx, &models.User{
			Email:      email,
			Name:       identity.Name,
			AvatarURL:  identity.AvatarURL,
			Active:     true,
			VerifiedAt: &now,
		})
		if err != nil {
			s.logger.Error("failed to create federated user", slog.Any("error", err))
			return nil, err
		}
		s.logger.Info("federated user created",
			slog.String("user_id", user.ID),
			slog.String("email", pkglogger.SanitizedEmail(email)))
	default:
		s.logger.Error("failed to look up credential record", slog.Any("error", err))
		return nil, err
	}

	_, err = s.linkedRepo.Upsert(ctx, &models.LinkedAccount{
		UserID:            user.ID,
		Provider:          identity.Provider,
		ProviderAccountID: identity.ProviderAccountID,
		AccessToken:       identity.AccessToken,
		RefreshToken:      identity.RefreshToken,
		IDToken:           identity.IDToken,
		TokenExpiresAt:    identity.TokenExpiresAt,
		Scopes:            identity.Scopes,
	})
	if err != nil {
		s.logger.Error("failed to upsert linked account",
			slog.String("user_id", user.ID),
			slog.String("provider", identity.Provider),
			slog.Any("error", err))
		return nil, err
	}

	return user, nil
}
