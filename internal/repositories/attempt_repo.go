package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/gatehouse/internal/database"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptRepository handles identifier attempt counter state
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository
func NewAttemptRepository(db *database.DB) *AttemptRepository {
	return &AttemptRepository{pool: db.Pool}
}

// Get retrieves the attempt record for an identifier
func (r *AttemptRepository) Get(ctx context.Context, identifier string) (*models.IdentifierAttempt, error) {
	query := `
		SELECT identifier, attempts, last_attempt_at, blocked_until, created_at
		FROM identifier_attempts
		WHERE identifier = $1
	`

	var rec models.IdentifierAttempt
	err := r.pool.QueryRow(ctx, query, identifier).Scan(
		&rec.Identifier, &rec.Attempts, &rec.LastAttemptAt, &rec.BlockedUntil, &rec.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &rec, nil
}

// ResetWindow zeroes the attempt count after the sliding window has lapsed.
// This is a plain read-decide-write companion; concurrent callers for the
// same identifier may both reset, which slightly over-admits at the window
// boundary (accepted behavior).
func (r *AttemptRepository) ResetWindow(ctx context.Context, identifier string, now time.Time) error {
	query := `
		UPDATE identifier_attempts
		SET attempts = 0, last_attempt_at = $2
		WHERE identifier = $1
	`

	_, err := r.pool.Exec(ctx, query, identifier, now)
	if err != nil {
		return fmt.Errorf("failed to reset attempt window: %w", err)
	}

	return nil
}

// Block sets blocked_until on an identifier, but only while the attempt count
// is at or over the threshold and no block is active yet. The conditional
// update makes the exceed-threshold transition atomic against concurrent
// admission checks.
func (r *AttemptRepository) Block(ctx context.Context, identifier string, maxAttempts int, until time.Time) (bool, error) {
	query := `
		UPDATE identifier_attempts
		SET blocked_until = $2
		WHERE identifier = $1 AND attempts >= $3 AND (blocked_until IS NULL OR blocked_until < NOW())
	`

	result, err := r.pool.Exec(ctx, query, identifier, until, maxAttempts)
	if err != nil {
		return false, fmt.Errorf("failed to block identifier: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// RecordSuccess resets the counter and clears any block for an identifier,
// creating the record if it does not exist yet
func (r *AttemptRepository) RecordSuccess(ctx context.Context, identifier string, now time.Time) error {
	query := `
		INSERT INTO identifier_attempts (identifier, attempts, last_attempt_at)
		VALUES ($1, 0, $2)
		ON CONFLICT (identifier) DO UPDATE
		SET attempts = 0, blocked_until = NULL, last_attempt_at = $2
	`

	_, err := r.pool.Exec(ctx, query, identifier, now)
	if err != nil {
		return fmt.Errorf("failed to record successful attempt: %w", err)
	}

	return nil
}

// RecordFailure increments the counter for an identifier, creating the record
// if it does not exist yet. An existing block is preserved.
func (r *AttemptRepository) RecordFailure(ctx context.Context, identifier string, now time.Time) error {
	query := `
		INSERT INTO identifier_attempts (identifier, attempts, last_attempt_at)
		VALUES ($1, 1, $2)
		ON CONFLICT (identifier) DO UPDATE
		SET attempts = identifier_attempts.attempts + 1, last_attempt_at = $2
	`

	_, err := r.pool.Exec(ctx, query, identifier, now)
	if err != nil {
		return fmt.Errorf("failed to record failed attempt: %w", err)
	}

	return nil
}

// DeleteStale removes records with zero attempts whose last attempt predates
// the cutoff. Pure maintenance; safe alongside live checks and records.
func (r *AttemptRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM identifier_attempts
		WHERE attempts = 0 AND last_attempt_at < $1
	`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale attempt records: %w", err)
	}

	return result.RowsAffected(), nil
}
