package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnv() {
	os.Setenv("SESSION_SECRET", "test-secret-32-characters-long!")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("EMAIL_FROM_ADDRESS", "no-reply@example.com")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv()
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	tests := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"IPWindow", cfg.RateLimit.IPWindow, 15 * time.Minute},
		{"IPBlockDuration", cfg.RateLimit.IPBlockDuration, 30 * time.Minute},
		{"EmailWindow", cfg.RateLimit.EmailWindow, 15 * time.Minute},
		{"EmailBlockDuration", cfg.RateLimit.EmailBlockDuration, 15 * time.Minute},
		{"OTPExpiry", cfg.OTP.Expiry, 10 * time.Minute},
		{"OTPResendCooldown", cfg.OTP.ResendCooldown, time.Minute},
		{"SessionExpiry", cfg.Session.Expiry, 24 * time.Hour},
	}
	for _, tt := range tests {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}

	if cfg.RateLimit.IPMaxAttempts != 10 {
		t.Errorf("IPMaxAttempts: got %d, want 10", cfg.RateLimit.IPMaxAttempts)
	}
	if cfg.RateLimit.EmailMaxAttempts != 5 {
		t.Errorf("EmailMaxAttempts: got %d, want 5", cfg.RateLimit.EmailMaxAttempts)
	}
}

func TestLoad_CustomRateLimits(t *testing.T) {
	setRequiredEnv()
	os.Setenv("RATE_LIMIT_IP_MAX_ATTEMPTS", "20")
	os.Setenv("RATE_LIMIT_EMAIL_WINDOW", "30m")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.RateLimit.IPMaxAttempts != 20 {
		t.Errorf("IPMaxAttempts: got %d, want 20", cfg.RateLimit.IPMaxAttempts)
	}
	if cfg.RateLimit.EmailWindow != 30*time.Minute {
		t.Errorf("EmailWindow: got %v, want 30m", cfg.RateLimit.EmailWindow)
	}
}

func TestLoad_MissingSessionSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("EMAIL_FROM_ADDRESS", "no-reply@example.com")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for missing SESSION_SECRET")
	}
}

func TestLoad_WeakSessionSecretRejected(t *testing.T) {
	setRequiredEnv()
	os.Setenv("SESSION_SECRET", "short")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for short SESSION_SECRET")
	}
}

func TestLoad_ProductionRequiresLongerSecret(t *testing.T) {
	setRequiredEnv()
	os.Setenv("ENV", "production")
	os.Setenv("SESSION_SECRET", "sixteen-chars-ok")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for 16-char secret in production")
	}
}

func TestLoad_MissingFromAddress(t *testing.T) {
	os.Clearenv()
	os.Setenv("SESSION_SECRET", "test-secret-32-characters-long!")
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for missing EMAIL_FROM_ADDRESS")
	}
}
