package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/background"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/services"
)

// NewTestRequest creates an HTTP request with a JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSessionContext adds session claims to the request context for testing
// authenticated endpoints
func WithSessionContext(req *http.Request, userID, email string) *http.Request {
	claims := &auth.SessionClaims{
		UserID: userID,
		Email:  email,
	}
	ctx := context.WithValue(req.Context(), auth.SessionContextKey, claims)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks the response status and decodes the JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	if target != nil {
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), target))
	}
}

// MockSignInService implements SignInServiceInterface for testing
type MockSignInService struct {
	SignInFunc          func(ctx context.Context, email, password string, meta services.RequestMeta) (*models.User, error)
	FederatedSignInFunc func(ctx context.Context, identity services.FederatedIdentity, meta services.RequestMeta) (*models.User, error)
}

func (m *MockSignInService) SignIn(ctx context.Context, email, password string, meta services.RequestMeta) (*models.User, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password, meta)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockSignInService) FederatedSignIn(ctx context.Context, identity services.FederatedIdentity, meta services.RequestMeta) (*models.User, error) {
	if m.FederatedSignInFunc != nil {
		return m.FederatedSignInFunc(ctx, identity, meta)
	}
	return nil, models.ErrInternalServer
}

// MockGoogleVerifier implements GoogleVerifierInterface for testing
type MockGoogleVerifier struct {
	VerifyFunc func(ctx context.Context, rawToken string) (*auth.GoogleClaims, error)
}

func (m *MockGoogleVerifier) Verify(ctx context.Context, rawToken string) (*auth.GoogleClaims, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, rawToken)
	}
	return nil, models.ErrUnauthorized
}

// MockAccountService implements AccountServiceInterface for testing
type MockAccountService struct {
	RegisterFunc      func(ctx context.Context, email, password, name string, meta services.RequestMeta) error
	RequestOTPFunc    func(ctx context.Context, email, purpose string, meta services.RequestMeta) error
	VerifyEmailFunc   func(ctx context.Context, email, code string, meta services.RequestMeta) error
	ResetPasswordFunc func(ctx context.Context, email, code, newPassword string, meta services.RequestMeta) error
}

func (m *MockAccountService) Register(ctx context.Context, email, password, name string, meta services.RequestMeta) error {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password, name, meta)
	}
	return nil
}

func (m *MockAccountService) RequestOTP(ctx context.Context, email, purpose string, meta services.RequestMeta) error {
	if m.RequestOTPFunc != nil {
		return m.RequestOTPFunc(ctx, email, purpose, meta)
	}
	return nil
}

func (m *MockAccountService) VerifyEmail(ctx context.Context, email, code string, meta services.RequestMeta) error {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, email, code, meta)
	}
	return models.ErrUnauthorized
}

func (m *MockAccountService) ResetPassword(ctx context.Context, email, code, newPassword string, meta services.RequestMeta) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, email, code, newPassword, meta)
	}
	return models.ErrUnauthorized
}

// MockActivityService implements ActivityServiceInterface for testing
type MockActivityService struct {
	GetUserTrailFunc func(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*models.ActivityLog, int64, error)
}

func (m *MockActivityService) GetUserTrail(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*models.ActivityLog, int64, error) {
	if m.GetUserTrailFunc != nil {
		return m.GetUserTrailFunc(ctx, actorID, limit, offset)
	}
	return []*models.ActivityLog{}, 0, nil
}

// MockReaper implements ReaperInterface for testing
type MockReaper struct {
	RunOnceFunc func(ctx context.Context) background.ReapStats
}

func (m *MockReaper) RunOnce(ctx context.Context) background.ReapStats {
	if m.RunOnceFunc != nil {
		return m.RunOnceFunc(ctx)
	}
	return background.ReapStats{}
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	HealthCheckFunc func(ctx context.Context) error
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	if m.HealthCheckFunc != nil {
		return m.HealthCheckFunc(ctx)
	}
	return nil
}
