package models

import (
	"time"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string // empty for federated-only accounts
	Name         string
	AvatarURL    string
	Active       bool       // email-verified gate; inactive accounts cannot sign in with a password
	VerifiedAt   *time.Time // when the email address was proven (OTP or federated claim)
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the account can attempt password sign-in at all.
// A false result indicates a federated-only (or half-created) account.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
