package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/api/middleware"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/providers"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/services"
)

// Error codes of the response envelope
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeConflict   = "CONFLICT"
	CodeAuthFailed = "AUTH_FAILED"
	CodeInternal   = "INTERNAL_ERROR"
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    CodeValidation,
			"message": "Invalid request body",
			"details": err.Error(),
		},
	})
}

// respondServiceError maps service sentinels to status codes
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidAccountData),
		errors.Is(err, services.ErrInvalidTriggerData),
		errors.Is(err, services.ErrInvalidWorkflowData),
		errors.Is(err, services.ErrPasswordTooShort):
		respondError(c, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrTriggerNotFound),
		errors.Is(err, services.ErrWorkflowNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrExecutionNotFound):
		respondError(c, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, services.ErrAccountAlreadyExists),
		errors.Is(err, services.ErrUserAlreadyExists),
		errors.Is(err, services.ErrSyncInProgress):
		respondError(c, http.StatusConflict, CodeConflict, err.Error())
	case errors.Is(err, providers.ErrOAuthNotConfigured),
		errors.Is(err, providers.ErrUnsupportedProvider):
		respondError(c, http.StatusBadRequest, CodeValidation, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, CodeInternal, err.Error())
	}
}

// requireTenant returns the caller's tenant or writes a 401
func requireTenant(c *gin.Context) (string, bool) {
	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, CodeAuthFailed, "User not authenticated")
		return "", false
	}
	return tenantID, true
}

// parseID reads the :id path parameter or writes a 400
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, CodeValidation, "Invalid id")
		return 0, false
	}
	return uint(id), true
}

func queryUint(c *gin.Context, name string) uint {
	v, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}

func queryInt(c *gin.Context, name string) int {
	v, _ := strconv.Atoi(c.Query(name))
	return v
}
