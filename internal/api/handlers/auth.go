package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/api/middleware"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/services"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
	TenantID  string `json:"tenant_id"`
}

// AuthHandler handles authentication related requests
type AuthHandler struct {
	userService *services.UserService
	jwtManager  *middleware.JWTManager
	logService  *services.LogService
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(userService *services.UserService, jwtManager *middleware.JWTManager, logService *services.LogService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtManager:  jwtManager,
		logService:  logService,
	}
}

// Login handles user login requests
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userService.VerifyPassword(req.Username, req.Password)
	if err != nil {
		h.logService.LogLogin(nil, req.Username, c.ClientIP(), err)
		respondError(c, http.StatusUnauthorized, CodeAuthFailed, "Invalid username or password")
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(user.ID, user.Username, user.TenantID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to generate token")
		return
	}

	h.logService.LogLogin(user, req.Username, c.ClientIP(), nil)
	respondOK(c, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt, TenantID: user.TenantID})
}

// RefreshToken issues a fresh token for the current user
// POST /api/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	tenantID, hasTenant := middleware.GetTenantIDFromContext(c)
	if !exists || !hasTenant {
		respondError(c, http.StatusUnauthorized, CodeAuthFailed, "User not authenticated")
		return
	}
	username, _ := middleware.GetUsernameFromContext(c)

	token, expiresAt, err := h.jwtManager.GenerateToken(userID, username, tenantID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to generate token")
		return
	}
	respondOK(c, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt, TenantID: tenantID})
}

// UserProfileResponse represents the current user
type UserProfileResponse struct {
	ID        uint   `json:"id"`
	TenantID  string `json:"tenant_id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	CreatedAt int64  `json:"created_at"`
}

// GetCurrentUser returns the current authenticated user info
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, CodeAuthFailed, "User not authenticated")
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, UserProfileResponse{
		ID:        user.ID,
		TenantID:  user.TenantID,
		Username:  user.Username,
		Nickname:  user.Nickname,
		CreatedAt: user.CreatedAt.Unix(),
	})
}
