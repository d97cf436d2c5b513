package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/api/middleware"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/providers"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/services"
)

// stateTTL bounds how long an authorization round trip may take
const stateTTL = 10 * time.Minute

// OAuthState represents a pending authorization
type OAuthState struct {
	TenantID    string
	UserID      uint
	Provider    models.CalendarProvider
	DisplayName string
	CreatedAt   time.Time
}

// StateStore keeps OAuth state tokens until the callback consumes them
type StateStore struct {
	mu     sync.Mutex
	states map[string]*OAuthState
	now    func() time.Time
}

// NewStateStore creates an empty state store
func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]*OAuthState), now: time.Now}
}

// Put stores a state under a fresh random token
func (s *StateStore) Put(state OAuthState) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(b)

	s.mu.Lock()
	defer s.mu.Unlock()
	state.CreatedAt = s.now()
	s.states[token] = &state
	for key, st := range s.states {
		if s.now().Sub(st.CreatedAt) > stateTTL {
			delete(s.states, key)
		}
	}
	return token, nil
}

// Take removes and returns a state; expired or unknown tokens yield false
func (s *StateStore) Take(token string) (*OAuthState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[token]
	if !ok {
		return nil, false
	}
	delete(s.states, token)
	if s.now().Sub(state.CreatedAt) > stateTTL {
		return nil, false
	}
	return state, true
}

// OAuthHandler runs the browser authorization flow for Google and Outlook
type OAuthHandler struct {
	accountService *services.AccountService
	registry       *providers.Registry
	stateStore     *StateStore
	redirectBase   string
}

// NewOAuthHandler creates a new OAuthHandler. redirectBase is the public
// origin of this server, e.g. https://nexus.example.com.
func NewOAuthHandler(accountService *services.AccountService, registry *providers.Registry, redirectBase string) *OAuthHandler {
	return &OAuthHandler{
		accountService: accountService,
		registry:       registry,
		stateStore:     NewStateStore(),
		redirectBase:   strings.TrimRight(redirectBase, "/"),
	}
}

func (h *OAuthHandler) callbackURL(provider models.CalendarProvider) string {
	return h.redirectBase + "/api/oauth/" + string(provider) + "/callback"
}

func (h *OAuthHandler) connector(c *gin.Context) (models.CalendarProvider, providers.OAuthConnector, bool) {
	provider := models.CalendarProvider(c.Param("provider"))
	if !provider.UsesOAuth() {
		respondError(c, http.StatusBadRequest, CodeValidation, "Provider does not use OAuth")
		return provider, nil, false
	}
	connector, err := h.registry.Connector(provider)
	if err != nil {
		respondServiceError(c, err)
		return provider, nil, false
	}
	return provider, connector, true
}

// GetOAuthConfig reports which providers have OAuth clients configured
// GET /api/oauth/config
func (h *OAuthHandler) GetOAuthConfig(c *gin.Context) {
	enabled := gin.H{}
	for _, provider := range []models.CalendarProvider{models.ProviderGoogle, models.ProviderOutlook} {
		connector, err := h.registry.Connector(provider)
		enabled[string(provider)+"_enabled"] = err == nil && connector.Configured()
	}
	respondOK(c, http.StatusOK, enabled)
}

// GetAuthURL returns the provider authorization URL
// GET /api/oauth/:provider/auth
func (h *OAuthHandler) GetAuthURL(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserIDFromContext(c)

	provider, connector, ok := h.connector(c)
	if !ok {
		return
	}
	if !connector.Configured() {
		respondServiceError(c, providers.ErrOAuthNotConfigured)
		return
	}

	state, err := h.stateStore.Put(OAuthState{
		TenantID:    tenantID,
		UserID:      userID,
		Provider:    provider,
		DisplayName: c.Query("display_name"),
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to generate state token")
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"auth_url": connector.AuthCodeURL(state, h.callbackURL(provider)),
	})
}

func redirectWithError(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, "/?oauth_error="+url.QueryEscape(reason))
}

// Callback completes the authorization and connects the calendar
// GET /api/oauth/:provider/callback
func (h *OAuthHandler) Callback(c *gin.Context) {
	if errorParam := c.Query("error"); errorParam != "" {
		redirectWithError(c, errorParam)
		return
	}
	code, token := c.Query("code"), c.Query("state")
	if code == "" || token == "" {
		redirectWithError(c, "missing_params")
		return
	}

	state, ok := h.stateStore.Take(token)
	if !ok {
		redirectWithError(c, "invalid_state")
		return
	}
	if string(state.Provider) != c.Param("provider") {
		redirectWithError(c, "provider_mismatch")
		return
	}
	connector, err := h.registry.Connector(state.Provider)
	if err != nil {
		redirectWithError(c, "config_error")
		return
	}

	ctx := c.Request.Context()
	creds, err := connector.Exchange(ctx, code, h.callbackURL(state.Provider))
	if err != nil {
		log.Printf("[OAuth] Token exchange for %s failed: %v", state.Provider, err)
		redirectWithError(c, "token_exchange_failed")
		return
	}
	email, err := connector.AccountEmail(ctx, creds)
	if err != nil {
		log.Printf("[OAuth] Reading account email from %s failed: %v", state.Provider, err)
		redirectWithError(c, "get_email_failed")
		return
	}

	displayName := state.DisplayName
	if displayName == "" {
		displayName = email
	}
	_, err = h.accountService.ConnectAccount(services.ConnectAccountInput{
		TenantID:    state.TenantID,
		UserID:      state.UserID,
		Email:       email,
		DisplayName: displayName,
		Provider:    state.Provider,
		Username:    email,
		Credentials: creds,
	})
	if err != nil {
		log.Printf("[OAuth] Connecting %s account %s failed: %v", state.Provider, email, err)
		redirectWithError(c, "save_account_failed")
		return
	}

	c.Redirect(http.StatusFound, "/?oauth_success="+string(state.Provider)+"&email="+url.QueryEscape(email))
}
