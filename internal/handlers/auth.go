package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/services"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
)

// SignInServiceInterface defines the interface for the sign-in orchestrator
type SignInServiceInterface interface {
	SignIn(ctx context.Context, email, password string, meta services.RequestMeta) (*models.User, error)
	FederatedSignIn(ctx context.Context, identity services.FederatedIdentity, meta services.RequestMeta) (*models.User, error)
}

// GoogleVerifierInterface defines the interface for Google ID token validation
type GoogleVerifierInterface interface {
	Verify(ctx context.Context, rawToken string) (*auth.GoogleClaims, error)
}

// AuthHandler handles sign-in, federated sign-in and logout
type AuthHandler struct {
	signin       SignInServiceInterface
	google       GoogleVerifierInterface
	sessions     *auth.SessionManager
	cookieConfig auth.CookieConfig
	ipConfig     *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	signin SignInServiceInterface,
	google GoogleVerifierInterface,
	sessions *auth.SessionManager,
	cookieConfig auth.CookieConfig,
	ipConfig *pkghttp.IPConfig,
) *AuthHandler {
	return &AuthHandler{
		signin:       signin,
		google:       google,
		sessions:     sessions,
		cookieConfig: cookieConfig,
		ipConfig:     ipConfig,
	}
}

// LoginRequest represents the request body for credential sign-in
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// GoogleSignInRequest represents the request body for federated sign-in
type GoogleSignInRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// UserResponse is the profile returned on successful sign-in
type UserResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name,omitempty"`
	AvatarURL  string     `json:"avatar_url,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

func userResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		Name:       user.Name,
		AvatarURL:  user.AvatarURL,
		VerifiedAt: user.VerifiedAt,
	}
}

func (h *AuthHandler) requestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		SourceIP:  pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

// Login handles credential sign-in. Every rejection maps to the same generic
// message; only throttling is distinguishable, by status code.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.signin.SignIn(r.Context(), req.Email, req.Password, h.requestMeta(r))
	if err != nil {
		var throttled *models.ThrottledError
		switch {
		case errors.As(err, &throttled):
			if throttled.RetryAt != nil {
				retryAfter := int(time.Until(*throttled.RetryAt).Seconds())
				if retryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				}
			}
			pkghttp.WriteTooManyRequests(w, "Too many failed attempts. Please try again later.")
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	token, err := h.sessions.Generate(user.ID, user.Email)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	auth.SetSessionCookie(w, token, h.sessions.Expiry(), h.cookieConfig)

	pkghttp.WriteJSON(w, http.StatusOK, userResponse(user))
}

// Google handles federated sign-in with a Google ID token. The durable rate
// limiters are not consulted; Google already gated the authentication.
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req GoogleSignInRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	claims, err := h.google.Verify(r.Context(), req.IDToken)
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Authentication failed")
		return
	}

	user, err := h.signin.FederatedSignIn(r.Context(), services.FederatedIdentity{
		Provider:          "google",
		ProviderAccountID: claims.Subject,
		Email:             claims.Email,
		Name:              claims.Name,
		AvatarURL:         claims.AvatarURL,
		IDToken:           req.IDToken,
	}, h.requestMeta(r))
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	token, err := h.sessions.Generate(user.ID, user.Email)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	auth.SetSessionCookie(w, token, h.sessions.Expiry(), h.cookieConfig)

	pkghttp.WriteJSON(w, http.StatusOK, userResponse(user))
}

// Logout clears the session cookie. The token itself expires on its own;
// there is no revocation list.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.cookieConfig)
	w.WriteHeader(http.StatusNoContent)
}
