package models

import "time"

// LinkedAccount ties a local user to an identity at an external provider.
// The (provider, provider_account_id) pair is unique; re-authentication with
// the same pair overwrites token material in place.
type LinkedAccount struct {
	ID                string
	UserID            string
	Provider          string // e.g. "google"
	ProviderAccountID string
	AccessToken       string
	RefreshToken      string
	IDToken           string
	TokenExpiresAt    *time.Time
	Scopes            []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
