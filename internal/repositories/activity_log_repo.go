package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/gatehouse/internal/database"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ActivityLogRepository handles activity record data access. Append-only:
// there are no update or delete operations.
type ActivityLogRepository struct {
	pool *pgxpool.Pool
}

// NewActivityLogRepository creates a new ActivityLogRepository
func NewActivityLogRepository(db *database.DB) *ActivityLogRepository {
	return &ActivityLogRepository{pool: db.Pool}
}

const activityLogColumns = `id, actor_id, action, category, description, source_ip, user_agent, metadata, success, created_at`

// scanActivityLogRow handles nullable fields and populates an ActivityLog model from a database row
func scanActivityLogRow(row rowScanner) (*models.ActivityLog, error) {
	var log models.ActivityLog

	err := row.Scan(
		&log.ID, &log.ActorID, &log.Action, &log.Category, &log.Description,
		&log.SourceIP, &log.UserAgent, &log.Metadata, &log.Success,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &log, nil
}

// scanActivityLogRows iterates through rows and scans each into ActivityLog models
func scanActivityLogRows(rows pgx.Rows) ([]*models.ActivityLog, error) {
	defer rows.Close()

	logs := make([]*models.ActivityLog, 0)

	for rows.Next() {
		log, err := scanActivityLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity log rows: %w", err)
	}

	return logs, nil
}

// Create appends a new activity record
func (r *ActivityLogRepository) Create(ctx context.Context, log *models.ActivityLog) (*models.ActivityLog, error) {
	query := `
		INSERT INTO activity_logs (actor_id, action, category, description, source_ip, user_agent, metadata, success)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + activityLogColumns

	row := r.pool.QueryRow(ctx, query,
		log.ActorID, log.Action, log.Category, log.Description,
		log.SourceIP, log.UserAgent, log.Metadata, log.Success,
	)

	created, err := scanActivityLogRow(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create activity log: %w", err)
	}

	return created, nil
}

// ListByActor retrieves the activity trail for a user, newest first
func (r *ActivityLogRepository) ListByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*models.ActivityLog, error) {
	query := `
		SELECT ` + activityLogColumns + `
		FROM activity_logs
		WHERE actor_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, actorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity logs: %w", err)
	}

	return scanActivityLogRows(rows)
}

// CountByActor returns the number of activity records for a user
func (r *ActivityLogRepository) CountByActor(ctx context.Context, actorID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM activity_logs WHERE actor_id = $1`

	var count int64
	if err := r.pool.QueryRow(ctx, query, actorID).Scan(&count); err != nil {
		return 0, database.MapPostgresError(err)
	}

	return count, nil
}
