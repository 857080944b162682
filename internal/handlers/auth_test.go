package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/services"
)

func newTestAuthHandler(signin SignInServiceInterface, google GoogleVerifierInterface) *AuthHandler {
	sessions := auth.NewSessionManager("test-secret-key-for-sessions", time.Hour)
	return NewAuthHandler(signin, google, sessions, auth.CookieConfig{SameSite: "lax"}, nil)
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestLogin_Success(t *testing.T) {
	signin := &MockSignInService{
		SignInFunc: func(ctx context.Context, email, password string, meta services.RequestMeta) (*models.User, error) {
			return &models.User{ID: "6e8bc430-9c3a-4d9a-8c4e-2b1f0a1e8f00", Email: email, Active: true}, nil
		},
	}
	handler := newTestAuthHandler(signin, &MockGoogleVerifier{})

	req := NewTestRequest(t, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "user@example.com",
		Password: "CorrectHorse9!",
	})
	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp UserResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "user@example.com", resp.Email)

	cookie := sessionCookie(w)
	require.NotNil(t, cookie, "successful login must set the session cookie")
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)
}

func TestLogin_AuthenticationFailedIsGeneric(t *testing.T) {
	handler := newTestAuthHandler(&MockSignInService{}, &MockGoogleVerifier{})

	req := NewTestRequest(t, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "user@example.com",
		Password: "wrong",
	})
	w := httptest.NewRecorder()
	handler.Login(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authentication failed")
	assert.NotContains(t, strings.ToLower(w.Body.String()), "password")
	assert.Nil(t, sessionCookie(w))
}

func TestLogin_ThrottledSetsRetryAfter(t *testing.T) {
	retryAt := time.Now().Add(10 * time.Minute)
	signin := &MockSignInService{
		SignInFunc: func(ctx context.Context, email, password string, meta services.RequestMeta) (*models.User, error) {
			return nil, &models.ThrottledError{RetryAt: &retryAt}
		},
	}
	handler := newTestAuthHandler(signin, &MockGoogleVerifier{})

	req := NewTestRequest(t, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "user@example.com",
		Password: "CorrectHorse9!",
	})
	w := httptest.NewRecorder()
	handler.Login(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestLogin_InvalidBodyRejected(t *testing.T) {
	handler := newTestAuthHandler(&MockSignInService{}, &MockGoogleVerifier{})

	req := NewTestRequest(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "not-an-email",
	})
	w := httptest.NewRecorder()
	handler.Login(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGoogle_Success(t *testing.T) {
	google := &MockGoogleVerifier{
		VerifyFunc: func(ctx context.Context, rawToken string) (*auth.GoogleClaims, error) {
			return &auth.GoogleClaims{
				Subject: "goog-123",
				Email:   "user@example.com",
				Name:    "User",
			}, nil
		},
	}
	var gotIdentity services.FederatedIdentity
	signin := &MockSignInService{
		FederatedSignInFunc: func(ctx context.Context, identity services.FederatedIdentity, meta services.RequestMeta) (*models.User, error) {
			gotIdentity = identity
			return &models.User{ID: "6e8bc430-9c3a-4d9a-8c4e-2b1f0a1e8f00", Email: identity.Email, Active: true}, nil
		},
	}
	handler := newTestAuthHandler(signin, google)

	req := NewTestRequest(t, http.MethodPost, "/auth/google", GoogleSignInRequest{IDToken: "raw-token"})
	w := httptest.NewRecorder()
	handler.Google(w, req)

	var resp UserResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "google", gotIdentity.Provider)
	assert.Equal(t, "goog-123", gotIdentity.ProviderAccountID)
	require.NotNil(t, sessionCookie(w))
}

func TestGoogle_InvalidTokenRejected(t *testing.T) {
	handler := newTestAuthHandler(&MockSignInService{}, &MockGoogleVerifier{})

	req := NewTestRequest(t, http.MethodPost, "/auth/google", GoogleSignInRequest{IDToken: "bogus"})
	w := httptest.NewRecorder()
	handler.Google(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, sessionCookie(w))
}

func TestLogout_ClearsCookie(t *testing.T) {
	handler := newTestAuthHandler(&MockSignInService{}, &MockGoogleVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()
	handler.Logout(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}
