package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/BradenHooton/gatehouse/internal/background"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
)

// ReaperInterface defines the interface for the maintenance pass
type ReaperInterface interface {
	RunOnce(ctx context.Context) background.ReapStats
}

// MaintenanceHandler exposes the maintenance pass to an external scheduler
type MaintenanceHandler struct {
	reaper     ReaperInterface
	cronSecret string
}

// NewMaintenanceHandler creates a new MaintenanceHandler
func NewMaintenanceHandler(reaper ReaperInterface, cronSecret string) *MaintenanceHandler {
	return &MaintenanceHandler{
		reaper:     reaper,
		cronSecret: cronSecret,
	}
}

// Reap runs one maintenance pass. Authenticated by a shared secret header;
// the comparison is constant-time.
func (h *MaintenanceHandler) Reap(w http.ResponseWriter, r *http.Request) {
	presented := r.Header.Get("X-Cron-Secret")
	if h.cronSecret == "" ||
		subtle.ConstantTimeCompare([]byte(presented), []byte(h.cronSecret)) != 1 {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	stats := h.reaper.RunOnce(r.Context())
	pkghttp.WriteJSON(w, http.StatusOK, stats)
}
