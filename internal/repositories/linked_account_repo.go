package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/gatehouse/internal/database"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// LinkedAccountRepository handles federated identity link data access
type LinkedAccountRepository struct {
	pool *pgxpool.Pool
}

// NewLinkedAccountRepository creates a new LinkedAccountRepository
func NewLinkedAccountRepository(db *database.DB) *LinkedAccountRepository {
	return &LinkedAccountRepository{pool: db.Pool}
}

const linkedAccountColumns = `id, user_id, provider, provider_account_id, access_token, refresh_token, id_token, token_expires_at, scopes, created_at, updated_at`

// scanLinkedAccountRow populates a LinkedAccount model from a database row
func scanLinkedAccountRow(scanner rowScanner) (*models.LinkedAccount, error) {
	var la models.LinkedAccount
	var tokenExpiresAt *time.Time

	err := scanner.Scan(
		&la.ID, &la.UserID, &la.Provider, &la.ProviderAccountID,
		&la.AccessToken, &la.RefreshToken, &la.IDToken,
		&tokenExpiresAt, pq.Array(&la.Scopes),
		&la.CreatedAt, &la.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	la.TokenExpiresAt = tokenExpiresAt
	return &la, nil
}

// Upsert creates the link for (provider, provider_account_id) or, if it
// already exists, overwrites the token material in place
func (r *LinkedAccountRepository) Upsert(ctx context.Context, la *models.LinkedAccount) (*models.LinkedAccount, error) {
	query := `
		INSERT INTO linked_accounts (user_id, provider, provider_account_id, access_token, refresh_token, id_token, token_expires_at, scopes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider, provider_account_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    id_token = EXCLUDED.id_token,
		    token_expires_at = EXCLUDED.token_expires_at,
		    scopes = EXCLUDED.scopes,
		    updated_at = NOW()
		RETURNING ` + linkedAccountColumns

	row := r.pool.QueryRow(ctx, query,
		la.UserID, la.Provider, la.ProviderAccountID,
		la.AccessToken, la.RefreshToken, la.IDToken,
		la.TokenExpiresAt, pq.Array(la.Scopes),
	)

	linked, err := scanLinkedAccountRow(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert linked account: %w", err)
	}

	return linked, nil
}

// ExistsForUser reports whether the user has any federated link
func (r *LinkedAccountRepository) ExistsForUser(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM linked_accounts WHERE user_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, database.MapPostgresError(err)
	}

	return exists, nil
}

// GetByProviderAccount retrieves a link by its unique (provider, provider_account_id) pair
func (r *LinkedAccountRepository) GetByProviderAccount(ctx context.Context, provider, providerAccountID string) (*models.LinkedAccount, error) {
	query := `
		SELECT ` + linkedAccountColumns + `
		FROM linked_accounts
		WHERE provider = $1 AND provider_account_id = $2
	`

	return scanLinkedAccountRow(r.pool.QueryRow(ctx, query, provider, providerAccountID))
}
