package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/api/middleware"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/services"
)

// AccountHandler handles calendar account related requests
type AccountHandler struct {
	accountService *services.AccountService
	scheduler      *services.SyncScheduler
}

// NewAccountHandler creates a new AccountHandler instance
func NewAccountHandler(accountService *services.AccountService, scheduler *services.SyncScheduler) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		scheduler:      scheduler,
	}
}

// SyncSettingsRequest represents the sync settings of an account
type SyncSettingsRequest struct {
	SyncPastDays     int      `json:"sync_past_days" binding:"min=0,max=365"`
	SyncFutureDays   int      `json:"sync_future_days" binding:"min=0,max=365"`
	MaxEventsPerSync int      `json:"max_events_per_sync" binding:"min=0,max=2500"`
	CalendarIDs      []string `json:"calendar_ids" binding:"omitempty,dive,required"`
}

func (r SyncSettingsRequest) toModel() models.SyncSettings {
	return models.SyncSettings{
		SyncPastDays:     r.SyncPastDays,
		SyncFutureDays:   r.SyncFutureDays,
		MaxEventsPerSync: r.MaxEventsPerSync,
		CalendarIDs:      r.CalendarIDs,
	}
}

// ConnectAccountRequest represents the request to connect a calendar account.
// OAuth providers pass tokens obtained elsewhere; the browser flow goes
// through OAuthHandler instead.
type ConnectAccountRequest struct {
	Provider     string              `json:"provider" binding:"required,oneof=google outlook apple caldav"`
	Email        string              `json:"email" binding:"required,email"`
	DisplayName  string              `json:"display_name" binding:"max=100"`
	ServerURL    string              `json:"server_url" binding:"omitempty,url"`
	Username     string              `json:"username"`
	Password     string              `json:"password"`
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token"`
	SyncSettings SyncSettingsRequest `json:"sync_settings"`
}

// AccountResponse represents a calendar account in API responses
type AccountResponse struct {
	*models.CalendarAccount
	Syncing bool `json:"syncing"`
}

func (h *AccountHandler) toResponse(account *models.CalendarAccount) AccountResponse {
	return AccountResponse{
		CalendarAccount: account,
		Syncing:         h.scheduler != nil && h.scheduler.IsAccountSyncing(account.ID),
	}
}

// ListAccounts returns the calendar accounts of the tenant
// GET /api/calendar/accounts
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	accounts, err := h.accountService.ListAccounts(tenantID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	list := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		list = append(list, h.toResponse(&accounts[i]))
	}
	respondOK(c, http.StatusOK, list)
}

// ConnectAccount connects a calendar account with credentials
// POST /api/calendar/accounts
func (h *AccountHandler) ConnectAccount(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserIDFromContext(c)

	var req ConnectAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	username := req.Username
	if username == "" {
		username = req.Email
	}
	account, err := h.accountService.ConnectAccount(services.ConnectAccountInput{
		TenantID:    tenantID,
		UserID:      userID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Provider:    models.CalendarProvider(req.Provider),
		ServerURL:   req.ServerURL,
		Username:    username,
		Credentials: models.Credentials{
			AccessToken:  req.AccessToken,
			RefreshToken: req.RefreshToken,
			Password:     req.Password,
		},
		SyncSettings: req.SyncSettings.toModel(),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, h.toResponse(account))
}

// GetAccount returns one calendar account
// GET /api/calendar/accounts/:id
func (h *AccountHandler) GetAccount(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	account, err := h.accountService.GetAccount(tenantID, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, h.toResponse(account))
}

// TestConnection checks the account against its provider
// POST /api/calendar/accounts/:id/test
func (h *AccountHandler) TestConnection(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.accountService.TestConnection(c.Request.Context(), tenantID, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// UpdateSettings replaces the sync settings of an account
// PUT /api/calendar/accounts/:id/settings
func (h *AccountHandler) UpdateSettings(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req SyncSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	account, err := h.accountService.UpdateSyncSettings(tenantID, id, req.toModel())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, h.toResponse(account))
}

// EnableAccount enables a calendar account
// PUT /api/calendar/accounts/:id/enable
func (h *AccountHandler) EnableAccount(c *gin.Context) {
	h.setActive(c, true)
}

// DisableAccount disables a calendar account
// PUT /api/calendar/accounts/:id/disable
func (h *AccountHandler) DisableAccount(c *gin.Context) {
	h.setActive(c, false)
}

func (h *AccountHandler) setActive(c *gin.Context, active bool) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	account, err := h.accountService.SetAccountActive(tenantID, id, active)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, h.toResponse(account))
}
