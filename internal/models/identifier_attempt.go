package models

import "time"

// IdentifierAttempt tracks failed-attempt state for one rate-limited key,
// either a client IP or a normalized email address.
type IdentifierAttempt struct {
	Identifier    string
	Attempts      int
	LastAttemptAt time.Time
	BlockedUntil  *time.Time
	CreatedAt     time.Time
}

// BlockedAt reports whether the identifier is under an active block at t.
// An active block denies admission regardless of the attempt count.
func (a *IdentifierAttempt) BlockedAt(t time.Time) bool {
	return a.BlockedUntil != nil && t.Before(*a.BlockedUntil)
}

// WindowExpiredAt reports whether the last attempt fell outside the sliding
// window ending at t.
func (a *IdentifierAttempt) WindowExpiredAt(t time.Time, window time.Duration) bool {
	return a.LastAttemptAt.Before(t.Add(-window))
}
