package models

import "time"

// OTP purposes. Codes are scoped per purpose and never valid across purposes.
const (
	OTPPurposeEmailVerification = "email_verification"
	OTPPurposePasswordReset     = "password_reset"
)

// OTPCode represents a single issued one-time code
type OTPCode struct {
	ID        string
	Email     string
	Code      string // 6-digit numeric
	Purpose   string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// IsExpired checks if the code has expired
func (c *OTPCode) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// IsUsed checks if the code has already been consumed
func (c *OTPCode) IsUsed() bool {
	return c.UsedAt != nil
}

// IsConsumable checks if the code is still valid for use
func (c *OTPCode) IsConsumable() bool {
	return !c.IsExpired() && !c.IsUsed()
}

// ValidOTPPurpose reports whether p is a recognized purpose tag
func ValidOTPPurpose(p string) bool {
	return p == OTPPurposeEmailVerification || p == OTPPurposePasswordReset
}
