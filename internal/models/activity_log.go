package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Activity actions
const (
	ActivityActionLogin             = "login"
	ActivityActionFailedLogin       = "failed_login"
	ActivityActionRateLimitExceeded = "rate_limit_exceeded"
	ActivityActionRegister          = "register"
	ActivityActionOTPIssued         = "otp_issued"
	ActivityActionEmailVerified     = "email_verified"
	ActivityActionPasswordReset     = "password_reset"
)

// Activity categories
const (
	ActivityCategorySecurity = "security"
	ActivityCategoryAccount  = "account"
)

// ActivityLog is one append-only record of a notable security or account
// event. The core never mutates or deletes these; retention is an external
// concern.
type ActivityLog struct {
	ID          uuid.UUID        `db:"id"`
	ActorID     *uuid.UUID       `db:"actor_id"`
	Action      string           `db:"action"`
	Category    string           `db:"category"`
	Description string           `db:"description"`
	SourceIP    *string          `db:"source_ip"`
	UserAgent   *string          `db:"user_agent"`
	Metadata    ActivityMetadata `db:"metadata"`
	Success     bool             `db:"success"`
	CreatedAt   time.Time        `db:"created_at"`
}

// ActivityMetadata holds additional context for activity records
type ActivityMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (am *ActivityMetadata) Scan(value interface{}) error {
	if value == nil {
		*am = make(ActivityMetadata)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*am = ActivityMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (am ActivityMetadata) Value() (driver.Value, error) {
	if am == nil {
		return nil, nil
	}
	return json.Marshal(am)
}

// MarshalJSON implements json.Marshaler
func (am ActivityMetadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(am))
}

// UnmarshalJSON implements json.Unmarshaler
func (am *ActivityMetadata) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*am = ActivityMetadata(m)
	return nil
}
