package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/services"
)

// LogHandler exposes the operation log of a tenant
type LogHandler struct {
	logService *services.LogService
}

// NewLogHandler creates a new LogHandler instance
func NewLogHandler(logService *services.LogService) *LogHandler {
	return &LogHandler{logService: logService}
}

func queryTime(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, CodeValidation, "Invalid "+name+", expected RFC3339")
		return nil, false
	}
	return &t, true
}

// GetLogs returns the operation log
// GET /api/logs?level=&module=&action=&start_time=&end_time=&page=&limit=
func (h *LogHandler) GetLogs(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	start, ok := queryTime(c, "start_time")
	if !ok {
		return
	}
	end, ok := queryTime(c, "end_time")
	if !ok {
		return
	}

	result, err := h.logService.QueryLogs(services.LogQuery{
		TenantID:  tenantID,
		Level:     c.Query("level"),
		Module:    c.Query("module"),
		Action:    c.Query("action"),
		StartTime: start,
		EndTime:   end,
		Page:      queryInt(c, "page"),
		Limit:     queryInt(c, "limit"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"total": result.Total, "logs": result.Logs})
}
