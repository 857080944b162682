package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/google/uuid"
)

// ActivityLogRepository defines the interface for activity record persistence
type ActivityLogRepository interface {
	Create(ctx context.Context, log *models.ActivityLog) (*models.ActivityLog, error)
	ListByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*models.ActivityLog, error)
	CountByActor(ctx context.Context, actorID uuid.UUID) (int64, error)
}

// ActivityEntry describes one event to record
type ActivityEntry struct {
	ActorID     *uuid.UUID
	Action      string
	Category    string
	Description string
	SourceIP    string
	UserAgent   string
	Metadata    models.ActivityMetadata
	Success     bool
}

// ActivityService appends audit records with a dual-write pattern: immediate
// slog output plus best-effort persistence. Record never fails the caller's
// primary operation.
type ActivityService struct {
	repo   ActivityLogRepository
	logger *slog.Logger
}

// NewActivityService creates a new ActivityService
func NewActivityService(repo ActivityLogRepository, logger *slog.Logger) *ActivityService {
	return &ActivityService{
		repo:   repo,
		logger: logger,
	}
}

// Record appends one activity record. Persistence failures are logged and
// swallowed; this is best-effort audit, not a durability-guaranteed ledger.
func (s *ActivityService) Record(ctx context.Context, entry ActivityEntry) {
	attrs := []any{
		slog.String("action", entry.Action),
		slog.String("category", entry.Category),
		slog.Bool("success", entry.Success),
	}
	if entry.ActorID != nil {
		attrs = append(attrs, slog.String("actor_id", entry.ActorID.String()))
	}
	if entry.SourceIP != "" {
		attrs = append(attrs, slog.String("source_ip", entry.SourceIP))
	}
	if entry.Metadata != nil {
		attrs = append(attrs, slog.Any("metadata", entry.Metadata))
	}

	if entry.Success {
		s.logger.InfoContext(ctx, "activity", attrs...)
	} else {
		s.logger.WarnContext(ctx, "activity", attrs...)
	}

	log := &models.ActivityLog{
		ActorID:     entry.ActorID,
		Action:      entry.Action,
		Category:    entry.Category,
		Description: entry.Description,
		Metadata:    entry.Metadata,
		Success:     entry.Success,
	}
	if entry.SourceIP != "" {
		log.SourceIP = &entry.SourceIP
	}
	if entry.UserAgent != "" {
		log.UserAgent = &entry.UserAgent
	}

	if _, err := s.repo.Create(ctx, log); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist activity record",
			slog.String("action", entry.Action),
			slog.Any("error", err))
	}
}

// GetUserTrail retrieves the activity trail for a user, newest first
func (s *ActivityService) GetUserTrail(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*models.ActivityLog, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	logs, err := s.repo.ListByActor(ctx, actorID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get activity trail: %w", err)
	}

	count, err := s.repo.CountByActor(ctx, actorID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count activity records: %w", err)
	}

	return logs, count, nil
}
