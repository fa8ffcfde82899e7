package handlers

import (
	"context"
	"net/http"

	"github.com/dustin/go-humanize"

	apperrors "github.com/arbitroy/stockflow/backend/internal/errors"
	syncpkg "github.com/arbitroy/stockflow/backend/internal/sync"
	"github.com/arbitroy/stockflow/backend/internal/sync/queue"
	"github.com/arbitroy/stockflow/backend/internal/sync/scheduler"
)

// SyncScheduler is the scheduler surface the sync endpoints need.
type SyncScheduler interface {
	Status() scheduler.SchedulerStatus
	TriggerSync(ctx context.Context) (*syncpkg.SyncResult, error)
}

// OfflineSwitch toggles forced offline mode.
type OfflineSwitch interface {
	SetOfflineMode(enabled bool)
	OfflineMode() bool
}

// SyncHandler serves sync status and manual sync.
type SyncHandler struct {
	scheduler SyncScheduler
	queue     *queue.Queue
	offline   OfflineSwitch
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(s SyncScheduler, q *queue.Queue, offline OfflineSwitch) *SyncHandler {
	return &SyncHandler{scheduler: s, queue: q, offline: offline}
}

// GetStatus handles GET /sync/status
// Returns connectivity, pending changes and the outcome of the last pass.
func (h *SyncHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := h.scheduler.Status()
	response := map[string]interface{}{
		"status":          status,
		"online":          status.IsOnline,
		"pending_changes": status.PendingItems,
		"last_sync_human": "never",
	}
	if status.LastSyncTime != nil {
		response["last_sync"] = status.LastSyncTime.Unix()
		response["last_sync_human"] = humanize.Time(*status.LastSyncTime)
	}
	if h.queue != nil {
		response["queue_stats"] = h.queue.Stats()
	}

	writeJSON(w, http.StatusOK, response)
}

// TriggerSync handles POST /sync/now
// Drains the offline queue once and reports the outcome.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.scheduler.TriggerSync(r.Context())
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSyncSkipped) {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"status": "skipped",
				"reason": apperrors.MessageOf(err),
			})
			return
		}
		writeError(w, r, err)
		return
	}

	outcome := "success"
	if result.Failed > 0 || result.Skipped > 0 {
		outcome = "partial"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    outcome,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"skipped":   result.Skipped,
		"failures":  result.Failures,
		"duration":  result.Duration.Milliseconds(),
	})
}

// ListQueue handles GET /sync/queue
// Lists the pending offline actions in replay order.
func (h *SyncHandler) ListQueue(w http.ResponseWriter, r *http.Request) {
	actions := h.queue.List()
	items := make([]map[string]interface{}, 0, len(actions))
	for _, a := range actions {
		items = append(items, map[string]interface{}{
			"action":  a,
			"summary": queue.Describe(a),
			"queued":  humanize.Time(a.QueuedAt()),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pending": len(actions),
		"stats":   h.queue.Stats(),
		"actions": items,
	})
}

// SetOfflineMode handles PUT /sync/offline-mode
// Body: {"enabled": bool}.
func (h *SyncHandler) SetOfflineMode(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Enabled *bool `json:"enabled"`
	}
	if !decodeBody(w, r, &request) {
		return
	}
	if request.Enabled == nil {
		http.Error(w, "enabled is required", http.StatusBadRequest)
		return
	}

	h.offline.SetOfflineMode(*request.Enabled)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"offline_mode": h.offline.OfflineMode(),
	})
}
