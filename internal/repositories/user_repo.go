package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/gatehouse/internal/database"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/google/uuid"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var passwordHash *string
	var verifiedAt *time.Time

	err := scanner.Scan(
		&user.ID, &user.Email, &passwordHash, &user.Name, &user.AvatarURL,
		&user.Active, &verifiedAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if passwordHash != nil {
		user.PasswordHash = *passwordHash
	}
	user.VerifiedAt = verifiedAt

	return &user, nil
}

const userColumns = `id, email, password_hash, name, avatar_url, active, verified_at, created_at, updated_at`

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return scanUserRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	return scanUserRow(r.db.Pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, email, password_hash, name, avatar_url, active, verified_at, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.AvatarURL,
		user.Active, user.VerifiedAt, user.CreatedAt, user.UpdatedAt,
	))
}

// ActivateByEmail marks the account active and stamps the verification time
func (r *UserRepository) ActivateByEmail(ctx context.Context, email string, verifiedAt time.Time) error {
	query := `
		UPDATE users
		SET active = true, verified_at = $2, updated_at = NOW()
		WHERE email = $1
	`

	result, err := r.db.Pool.Exec(ctx, query, email, verifiedAt)
	if err != nil {
		return fmt.Errorf("failed to activate user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// UpdatePasswordByEmail replaces the stored password hash
func (r *UserRepository) UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE email = $1
	`

	result, err := r.db.Pool.Exec(ctx, query, email, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// MergeFederatedProfile fills profile fields from a federated claim without
// clobbering values the record already has, marks the account active and
// stamps the verification time. Used when a federated sign-in matches an
// existing email.
func (r *UserRepository) MergeFederatedProfile(ctx context.Context, id, name, avatarURL string, verifiedAt time.Time) (*models.User, error) {
	query := `
		UPDATE users
		SET name = CASE WHEN name = '' THEN $2 ELSE name END,
		    avatar_url = CASE WHEN avatar_url = '' THEN $3 ELSE avatar_url END,
		    active = true,
		    verified_at = $4,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query, id, name, avatarURL, verifiedAt))
}
