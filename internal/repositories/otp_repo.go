package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/gatehouse/internal/database"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OTPRepository handles one-time code data access
type OTPRepository struct {
	pool *pgxpool.Pool
}

// NewOTPRepository creates a new OTPRepository
func NewOTPRepository(db *database.DB) *OTPRepository {
	return &OTPRepository{pool: db.Pool}
}

const otpColumns = `id, email, code, purpose, expires_at, used_at, created_at`

// scanOTPRow populates an OTPCode model from a database row
func scanOTPRow(scanner rowScanner) (*models.OTPCode, error) {
	var code models.OTPCode
	var usedAt *time.Time

	err := scanner.Scan(
		&code.ID, &code.Email, &code.Code, &code.Purpose,
		&code.ExpiresAt, &usedAt, &code.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	code.UsedAt = usedAt
	return &code, nil
}

// InvalidateActiveTx marks all currently unused codes for (email, purpose) as
// used, so at most one live code exists per purpose per email after a new one
// is inserted in the same transaction
func (r *OTPRepository) InvalidateActiveTx(ctx context.Context, tx pgx.Tx, email, purpose string) (int64, error) {
	query := `
		UPDATE otp_codes
		SET used_at = NOW()
		WHERE email = $1 AND purpose = $2 AND used_at IS NULL
	`

	result, err := tx.Exec(ctx, query, email, purpose)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate active codes: %w", err)
	}

	return result.RowsAffected(), nil
}

// CreateTx inserts a new code record inside the issuing transaction
func (r *OTPRepository) CreateTx(ctx context.Context, tx pgx.Tx, code *models.OTPCode) error {
	query := `
		INSERT INTO otp_codes (email, code, purpose, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query, code.Email, code.Code, code.Purpose, code.ExpiresAt).
		Scan(&code.ID, &code.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create otp code: %w", err)
	}

	return nil
}

// ConsumeIfValid atomically marks a matching live code as used. The
// conditional WHERE used_at IS NULL guarantees that of two concurrent
// consumers with the same valid code exactly one observes success.
func (r *OTPRepository) ConsumeIfValid(ctx context.Context, email, purpose, code string, now time.Time) (*models.OTPCode, error) {
	query := `
		UPDATE otp_codes
		SET used_at = $4
		WHERE email = $1 AND purpose = $2 AND code = $3
		  AND used_at IS NULL AND expires_at >= $4
		RETURNING ` + otpColumns

	return scanOTPRow(r.pool.QueryRow(ctx, query, email, purpose, code, now))
}

// GetActive retrieves an unused code matching (email, purpose, code)
// regardless of expiry, so the caller can tell "expired" from "no such code"
func (r *OTPRepository) GetActive(ctx context.Context, email, purpose, code string) (*models.OTPCode, error) {
	query := `
		SELECT ` + otpColumns + `
		FROM otp_codes
		WHERE email = $1 AND purpose = $2 AND code = $3 AND used_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`

	return scanOTPRow(r.pool.QueryRow(ctx, query, email, purpose, code))
}

// GetLatestActive retrieves the newest live code for (email, purpose),
// used for the reissue cooldown check
func (r *OTPRepository) GetLatestActive(ctx context.Context, email, purpose string) (*models.OTPCode, error) {
	query := `
		SELECT ` + otpColumns + `
		FROM otp_codes
		WHERE email = $1 AND purpose = $2 AND used_at IS NULL AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`

	return scanOTPRow(r.pool.QueryRow(ctx, query, email, purpose))
}

// DeleteExpired reaps used or expired codes older than the cutoff.
// Maintenance only; validity never depends on reaping.
func (r *OTPRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM otp_codes
		WHERE (used_at IS NOT NULL OR expires_at < NOW()) AND created_at < $1
	`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired otp codes: %w", err)
	}

	return result.RowsAffected(), nil
}
