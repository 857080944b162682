package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/BradenHooton/gatehouse/internal/models"
)

// MockAttemptRepository implements AttemptRepository for testing
type MockAttemptRepository struct {
	GetFunc           func(ctx context.Context, identifier string) (*models.IdentifierAttempt, error)
	ResetWindowFunc   func(ctx context.Context, identifier string, now time.Time) error
	BlockFunc         func(ctx context.Context, identifier string, maxAttempts int, until time.Time) (bool, error)
	RecordSuccessFunc func(ctx context.Context, identifier string, now time.Time) error
	RecordFailureFunc func(ctx context.Context, identifier string, now time.Time) error
	DeleteStaleFunc   func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *MockAttemptRepository) Get(ctx context.Context, identifier string) (*models.IdentifierAttempt, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, identifier)
	}
	return nil, models.ErrNotFound
}

func (m *MockAttemptRepository) ResetWindow(ctx context.Context, identifier string, now time.Time) error {
	if m.ResetWindowFunc != nil {
		return m.ResetWindowFunc(ctx, identifier, now)
	}
	return nil
}

func (m *MockAttemptRepository) Block(ctx context.Context, identifier string, maxAttempts int, until time.Time) (bool, error) {
	if m.BlockFunc != nil {
		return m.BlockFunc(ctx, identifier, maxAttempts, until)
	}
	return false, nil
}

func (m *MockAttemptRepository) RecordSuccess(ctx context.Context, identifier string, now time.Time) error {
	if m.RecordSuccessFunc != nil {
		return m.RecordSuccessFunc(ctx, identifier, now)
	}
	return nil
}

func (m *MockAttemptRepository) RecordFailure(ctx context.Context, identifier string, now time.Time) error {
	if m.RecordFailureFunc != nil {
		return m.RecordFailureFunc(ctx, identifier, now)
	}
	return nil
}

func (m *MockAttemptRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.DeleteStaleFunc != nil {
		return m.DeleteStaleFunc(ctx, cutoff)
	}
	return 0, nil
}

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByEmailFunc            func(ctx context.Context, email string) (*models.User, error)
	CreateFunc                func(ctx context.Context, user *models.User) (*models.User, error)
	ActivateByEmailFunc       func(ctx context.Context, email string, verifiedAt time.Time) error
	UpdatePasswordByEmailFunc func(ctx context.Context, email, passwordHash string) error
	MergeFederatedProfileFunc func(ctx context.Context, id, name, avatarURL string, verifiedAt time.Time) (*models.User, error)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) ActivateByEmail(ctx context.Context, email string, verifiedAt time.Time) error {
	if m.ActivateByEmailFunc != nil {
		return m.ActivateByEmailFunc(ctx, email, verifiedAt)
	}
	return nil
}

func (m *MockUserRepository) UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) error {
	if m.UpdatePasswordByEmailFunc != nil {
		return m.UpdatePasswordByEmailFunc(ctx, email, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) MergeFederatedProfile(ctx context.Context, id, name, avatarURL string, verifiedAt time.Time) (*models.User, error) {
	if m.MergeFederatedProfileFunc != nil {
		return m.MergeFederatedProfileFunc(ctx, id, name, avatarURL, verifiedAt)
	}
	return nil, models.ErrInternalServer
}

// MockLinkedAccountRepository implements LinkedAccountRepository for testing
type MockLinkedAccountRepository struct {
	UpsertFunc        func(ctx context.Context, la *models.LinkedAccount) (*models.LinkedAccount, error)
	ExistsForUserFunc func(ctx context.Context, userID string) (bool, error)
}

func (m *MockLinkedAccountRepository) Upsert(ctx context.Context, la *models.LinkedAccount) (*models.LinkedAccount, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, la)
	}
	return la, nil
}

func (m *MockLinkedAccountRepository) ExistsForUser(ctx context.Context, userID string) (bool, error) {
	if m.ExistsForUserFunc != nil {
		return m.ExistsForUserFunc(ctx, userID)
	}
	return false, nil
}

// MockOTPRepository implements OTPRepository for testing
type MockOTPRepository struct {
	InvalidateActiveTxFunc func(ctx context.Context, tx pgx.Tx, email, purpose string) (int64, error)
	CreateTxFunc           func(ctx context.Context, tx pgx.Tx, code *models.OTPCode) error
	ConsumeIfValidFunc     func(ctx context.Context, email, purpose, code string, now time.Time) (*models.OTPCode, error)
	GetActiveFunc          func(ctx context.Context, email, purpose, code string) (*models.OTPCode, error)
	GetLatestActiveFunc    func(ctx context.Context, email, purpose string) (*models.OTPCode, error)
	DeleteExpiredFunc      func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *MockOTPRepository) InvalidateActiveTx(ctx context.Context, tx pgx.Tx, email, purpose string) (int64, error) {
	if m.InvalidateActiveTxFunc != nil {
		return m.InvalidateActiveTxFunc(ctx, tx, email, purpose)
	}
	return 0, nil
}

func (m *MockOTPRepository) CreateTx(ctx context.Context, tx pgx.Tx, code *models.OTPCode) error {
	if m.CreateTxFunc != nil {
		return m.CreateTxFunc(ctx, tx, code)
	}
	return nil
}

func (m *MockOTPRepository) ConsumeIfValid(ctx context.Context, email, purpose, code string, now time.Time) (*models.OTPCode, error) {
	if m.ConsumeIfValidFunc != nil {
		return m.ConsumeIfValidFunc(ctx, email, purpose, code, now)
	}
	return nil, models.ErrNotFound
}

func (m *MockOTPRepository) GetActive(ctx context.Context, email, purpose, code string) (*models.OTPCode, error) {
	if m.GetActiveFunc != nil {
		return m.GetActiveFunc(ctx, email, purpose, code)
	}
	return nil, models.ErrNotFound
}

func (m *MockOTPRepository) GetLatestActive(ctx context.Context, email, purpose string) (*models.OTPCode, error) {
	if m.GetLatestActiveFunc != nil {
		return m.GetLatestActiveFunc(ctx, email, purpose)
	}
	return nil, models.ErrNotFound
}

func (m *MockOTPRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx, cutoff)
	}
	return 0, nil
}

// MockTxRunner implements TxRunner for testing. The default runs the
// function with a nil transaction, which the repository mocks ignore.
type MockTxRunner struct {
	WithTransactionFunc func(ctx context.Context, fn func(pgx.Tx) error) error
}

func (m *MockTxRunner) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(nil)
}

// MockEmailSender implements EmailSender for testing
type MockEmailSender struct {
	SendOTPFunc func(ctx context.Context, to, purpose, code string, expiresAt time.Time) error
}

func (m *MockEmailSender) SendOTP(ctx context.Context, to, purpose, code string, expiresAt time.Time) error {
	if m.SendOTPFunc != nil {
		return m.SendOTPFunc(ctx, to, purpose, code, expiresAt)
	}
	return nil
}

// MockActivityLogRepository implements ActivityLogRepository for testing
type MockActivityLogRepository struct {
	CreateFunc      func(ctx context.Context, log *models.ActivityLog) (*models.ActivityLog, error)
	ListByActorFunc func(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*models.ActivityLog, error)
	CountByActorFunc func(ctx context.Context, actorID uuid.UUID) (int64, error)
}

func (m *MockActivityLogRepository) Create(ctx context.Context, log *models.ActivityLog) (*models.ActivityLog, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	return log, nil
}

func (m *MockActivityLogRepository) ListByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*models.ActivityLog, error) {
	if m.ListByActorFunc != nil {
		return m.ListByActorFunc(ctx, actorID, limit, offset)
	}
	return []*models.ActivityLog{}, nil
}

func (m *MockActivityLogRepository) CountByActor(ctx context.Context, actorID uuid.UUID) (int64, error) {
	if m.CountByActorFunc != nil {
		return m.CountByActorFunc(ctx, actorID)
	}
	return 0, nil
}

// MockAdmissionController implements AdmissionController for testing
type MockAdmissionController struct {
	CheckAdmissionFunc func(ctx context.Context, identifier string) Admission
	RecordOutcomeFunc  func(ctx context.Context, identifier string, success bool)
}

func (m *MockAdmissionController) CheckAdmission(ctx context.Context, identifier string) Admission {
	if m.CheckAdmissionFunc != nil {
		return m.CheckAdmissionFunc(ctx, identifier)
	}
	return Admission{Allowed: true}
}

func (m *MockAdmissionController) RecordOutcome(ctx context.Context, identifier string, success bool) {
	if m.RecordOutcomeFunc != nil {
		m.RecordOutcomeFunc(ctx, identifier, success)
	}
}

// MockCredentialVerifier implements CredentialVerifier for testing
type MockCredentialVerifier struct {
	VerifyFunc                  func(ctx context.Context, email, password string) (VerifyOutcome, error)
	UpsertFederatedIdentityFunc func(ctx context.Context, identity FederatedIdentity) (*models.User, error)
}

func (m *MockCredentialVerifier) Verify(ctx context.Context, email, password string) (VerifyOutcome, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, email, password)
	}
	return VerifyOutcome{Kind: OutcomeNotFound}, nil
}

func (m *MockCredentialVerifier) UpsertFederatedIdentity(ctx context.Context, identity FederatedIdentity) (*models.User, error) {
	if m.UpsertFederatedIdentityFunc != nil {
		return m.UpsertFederatedIdentityFunc(ctx, identity)
	}
	return nil, models.ErrInternalServer
}

// MockActivityRecorder implements ActivityRecorder for testing
type MockActivityRecorder struct {
	RecordFunc func(ctx context.Context, entry ActivityEntry)
	Entries    []ActivityEntry
}

func (m *MockActivityRecorder) Record(ctx context.Context, entry ActivityEntry) {
	m.Entries = append(m.Entries, entry)
	if m.RecordFunc != nil {
		m.RecordFunc(ctx, entry)
	}
}

// MockOTPManager implements OTPManager for testing
type MockOTPManager struct {
	IssueFunc   func(ctx context.Context, email, purpose string) error
	ConsumeFunc func(ctx context.Context, email, purpose, presented string) (ConsumeResult, error)
}

func (m *MockOTPManager) Issue(ctx context.Context, email, purpose string) error {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, email, purpose)
	}
	return nil
}

func (m *MockOTPManager) Consume(ctx context.Context, email, purpose, presented string) (ConsumeResult, error) {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, email, purpose, presented)
	}
	return ConsumeResult{OK: false, Reason: OTPReasonInvalidOrExpired}, nil
}
