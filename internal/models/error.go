package models

import (
	"errors"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrDeliveryFailed    = errors.New("email delivery failed")
	ErrAccountNotActive  = errors.New("account is not active")
)

// ThrottledError carries the block expiry of the limiter that denied an
// attempt. It never reveals which limiter (IP or email) triggered.
type ThrottledError struct {
	RetryAt *time.Time
}

func (e *ThrottledError) Error() string {
	return "rate limit exceeded"
}

func (e *ThrottledError) Unwrap() error {
	return ErrRateLimitExceeded
}
