package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/gatehouse/internal/models"
)

func TestRecord_PersistsEntry(t *testing.T) {
	var persisted *models.ActivityLog
	repo := &MockActivityLogRepository{
		CreateFunc: func(ctx context.Context, log *models.ActivityLog) (*models.ActivityLog, error) {
			persisted = log
			return log, nil
		},
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	svc := NewActivityService(repo, logger)

	actorID := uuid.New()
	svc.Record(context.Background(), ActivityEntry{
		ActorID:     &actorID,
		Action:      models.ActivityActionLogin,
		Category:    models.ActivityCategorySecurity,
		Description: "credential sign-in",
		SourceIP:    "203.0.113.9",
		UserAgent:   "test-agent",
		Success:     true,
	})

	require.NotNil(t, persisted)
	assert.Equal(t, models.ActivityActionLogin, persisted.Action)
	assert.Equal(t, &actorID, persisted.ActorID)
	require.NotNil(t, persisted.SourceIP)
	assert.Equal(t, "203.0.113.9", *persisted.SourceIP)
}

func TestRecord_PersistenceFaultSwallowed(t *testing.T) {
	repo := &MockActivityLogRepository{
		CreateFunc: func(ctx context.Context, log *models.ActivityLog) (*models.ActivityLog, error) {
			return nil, errors.New("connection refused")
		},
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	svc := NewActivityService(repo, logger)

	// Must not panic; audit failures never fail the primary operation
	svc.Record(context.Background(), ActivityEntry{
		Action:   models.ActivityActionFailedLogin,
		Category: models.ActivityCategorySecurity,
	})
}

func TestGetUserTrail_ClampsLimit(t *testing.T) {
	var gotLimit, gotOffset int
	repo := &MockActivityLogRepository{
		ListByActorFunc: func(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*models.ActivityLog, error) {
			gotLimit = limit
			gotOffset = offset
			return []*models.ActivityLog{}, nil
		},
		CountByActorFunc: func(ctx context.Context, actorID uuid.UUID) (int64, error) {
			return 0, nil
		},
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	svc := NewActivityService(repo, logger)

	_, _, err := svc.GetUserTrail(context.Background(), uuid.New(), 1000, -5)

	require.NoError(t, err)
	assert.Equal(t, 50, gotLimit)
	assert.Equal(t, 0, gotOffset)
}
