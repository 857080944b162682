package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/services"
	pkgauth "github.com/BradenHooton/gatehouse/pkg/auth"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
)

// AccountServiceInterface defines the interface for account lifecycle flows
type AccountServiceInterface interface {
	Register(ctx context.Context, email, password, name string, meta services.RequestMeta) error
	RequestOTP(ctx context.Context, email, purpose string, meta services.RequestMeta) error
	VerifyEmail(ctx context.Context, email, code string, meta services.RequestMeta) error
	ResetPassword(ctx context.Context, email, code, newPassword string, meta services.RequestMeta) error
}

// AccountHandler handles registration, verification and password recovery
type AccountHandler struct {
	service  AccountServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(service AccountServiceInterface, ipConfig *pkghttp.IPConfig) *AccountHandler {
	return &AccountHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,min=1,max=200"`
}

// RequestOTPRequest represents the request body for requesting a one-time code
type RequestOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,oneof=email_verification password_reset"`
}

// VerifyOTPRequest represents the request body for verifying a one-time code
type VerifyOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,oneof=email_verification"`
	Code    string `json:"code" validate:"required,len=6,numeric"`
}

// ResetPasswordRequest represents the request body for password recovery
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required"`
}

const registrationReceivedMessage = "Registration received. If the email is not already registered, you will receive a confirmation email."

func (h *AccountHandler) requestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		SourceIP:  pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

// Register creates an inactive account and sends a verification code.
// Conflicts and weak passwords get the same generic accepted response, so the
// endpoint cannot be used to probe which emails are registered.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.Register(r.Context(), req.Email, req.Password, req.Name, h.requestMeta(r))
	if err != nil {
		var validationErr *pkgauth.PasswordValidationError
		switch {
		case errors.Is(err, models.ErrConflict), errors.As(err, &validationErr):
			pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{
				"message": registrationReceivedMessage,
			})
		case errors.Is(err, models.ErrDeliveryFailed):
			pkghttp.WriteServiceUnavailable(w, "Could not send the confirmation email. Please try again later.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": registrationReceivedMessage,
	})
}

// RequestOTP issues a one-time code for the given purpose. Unknown emails get
// the same accepted response as known ones.
func (h *AccountHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req RequestOTPRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.RequestOTP(r.Context(), req.Email, req.Purpose, h.requestMeta(r))
	if err != nil {
		if errors.Is(err, models.ErrDeliveryFailed) {
			pkghttp.WriteServiceUnavailable(w, "Could not send the email. Please try again later.")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "If the email is registered, a code has been sent.",
	})
}

// VerifyOTP consumes an email verification code and activates the account.
// Password reset codes are consumed by the reset endpoint, never here; the
// purpose whitelist in the DTO enforces that.
func (h *AccountHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.VerifyEmail(r.Context(), req.Email, req.Code, h.requestMeta(r))
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, "Invalid or expired code")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Email verified.",
	})
}

// ResetPassword consumes a reset code and replaces the password
func (h *AccountHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword, h.requestMeta(r))
	if err != nil {
		var validationErr *pkgauth.PasswordValidationError
		switch {
		case errors.As(err, &validationErr):
			pkghttp.WriteBadRequest(w, validationErr.Error())
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Invalid or expired code")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Password updated.",
	})
}
