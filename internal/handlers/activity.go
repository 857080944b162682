package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/models"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
)

// ActivityServiceInterface defines the interface for the activity trail
type ActivityServiceInterface interface {
	GetUserTrail(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*models.ActivityLog, int64, error)
}

// ActivityHandler serves the authenticated per-user activity trail
type ActivityHandler struct {
	service ActivityServiceInterface
}

// NewActivityHandler creates a new ActivityHandler
func NewActivityHandler(service ActivityServiceInterface) *ActivityHandler {
	return &ActivityHandler{service: service}
}

// ActivityTrailResponse represents a page of activity records
type ActivityTrailResponse struct {
	Activities []*models.ActivityLog `json:"activities"`
	Total      int64                 `json:"total"`
	Limit      int                   `json:"limit"`
	Offset     int                   `json:"offset"`
}

// GetActivity returns the calling user's own trail, newest first. The actor
// id comes from the session, never from the request, so one user cannot read
// another's trail.
func (h *ActivityHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.SessionFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	actorID, err := uuid.Parse(claims.UserID)
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	logs, total, err := h.service.GetUserTrail(r.Context(), actorID, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	pkghttp.WriteJSON(w, http.StatusOK, ActivityTrailResponse{
		Activities: logs,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
	})
}
