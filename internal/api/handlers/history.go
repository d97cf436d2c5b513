package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/services"
)

// HistoryHandler exposes the execution history and processing queue
type HistoryHandler struct {
	auditService *services.AuditService
}

// NewHistoryHandler creates a new HistoryHandler instance
func NewHistoryHandler(auditService *services.AuditService) *HistoryHandler {
	return &HistoryHandler{auditService: auditService}
}

func auditQuery(c *gin.Context, tenantID string) services.AuditQuery {
	return services.AuditQuery{
		TenantID:  tenantID,
		TriggerID: queryUint(c, "trigger_id"),
		AccountID: queryUint(c, "account_id"),
		Status:    c.Query("status"),
		Page:      queryInt(c, "page"),
		Limit:     queryInt(c, "limit"),
	}
}

// ListExecutions returns a page of dispatches
// GET /api/calendar/executions?trigger_id=&status=&page=&limit=
func (h *HistoryHandler) ListExecutions(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	entries, total, err := h.auditService.ListExecutions(auditQuery(c, tenantID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"total": total, "executions": entries})
}

// GetExecution returns one dispatch by execution id
// GET /api/calendar/executions/:execution_id
func (h *HistoryHandler) GetExecution(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	entry, err := h.auditService.GetExecution(tenantID, c.Param("execution_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, entry)
}

// ListQueue returns a page of processing queue entries
// GET /api/calendar/queue?account_id=&status=&page=&limit=
func (h *HistoryHandler) ListQueue(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	entries, total, err := h.auditService.ListQueue(auditQuery(c, tenantID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"total": total, "entries": entries})
}
