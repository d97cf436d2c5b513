package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/services"
)

// SyncHandler triggers manual syncs
type SyncHandler struct {
	scheduler *services.SyncScheduler
}

// NewSyncHandler creates a new SyncHandler instance
func NewSyncHandler(scheduler *services.SyncScheduler) *SyncHandler {
	return &SyncHandler{scheduler: scheduler}
}

// SyncResultResponse is the API form of a sync result
type SyncResultResponse struct {
	AccountID  uint   `json:"account_id"`
	EventCount int    `json:"event_count"`
	Dispatched int    `json:"dispatched"`
	Failed     int    `json:"failed"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func toSyncResponse(r services.SyncResult) SyncResultResponse {
	return SyncResultResponse{
		AccountID:  r.AccountID,
		EventCount: r.EventCount,
		Dispatched: r.Dispatched,
		Failed:     r.Failed,
		DurationMs: r.Duration.Milliseconds(),
		Error:      r.ErrorMessage(),
	}
}

// SyncAccount syncs one account now
// POST /api/calendar/accounts/:id/sync
func (h *SyncHandler) SyncAccount(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.scheduler.SyncAccountNow(c.Request.Context(), tenantID, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toSyncResponse(result))
}

// SyncTenant syncs every active account of the tenant now
// POST /api/calendar/sync
func (h *SyncHandler) SyncTenant(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	results, ran := h.scheduler.SyncTenantNow(c.Request.Context(), tenantID)
	if !ran {
		respondServiceError(c, services.ErrSyncInProgress)
		return
	}
	list := make([]SyncResultResponse, 0, len(results))
	for _, r := range results {
		list = append(list, toSyncResponse(r))
	}
	respondOK(c, http.StatusOK, list)
}
