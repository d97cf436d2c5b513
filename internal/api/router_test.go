package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/app"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/config"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/providers"
)

// stubCalDAV serves a fixed event list for every account
type stubCalDAV struct {
	events []models.CalendarEvent
}

func (s *stubCalDAV) Name() models.CalendarProvider { return models.ProviderCalDAV }

func (s *stubCalDAV) TestConnection(context.Context, *models.CalendarAccount, models.Credentials) providers.TestResult {
	return providers.TestResult{Success: true, Message: "Connection successful"}
}

func (s *stubCalDAV) FetchEvents(context.Context, *models.CalendarAccount, models.Credentials, providers.FetchWindow) ([]models.CalendarEvent, error) {
	return s.events, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	t      *testing.T
	app    *app.App
	router *gin.Engine
	apiKey string
}

func setupServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	cfg := config.Default()
	cfg.DataDir = dir
	cfg.JWTSecret = "router-test-secret"

	db, err := database.Initialize(database.Options{Path: filepath.Join(dir, "test.db"), Quiet: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	a, err := app.New(context.Background(), db, cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	return &testServer{
		t:      t,
		app:    a,
		router: SetupRouter(a),
		apiKey: a.Auth.APIKeyManager.GetCurrentKey(),
	}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", s.apiKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func (s *testServer) login(tenantID, username string) string {
	_, err := s.app.Users.CreateUser(tenantID, username, "secret123", username)
	require.NoError(s.t, err)

	status, env := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "secret123",
	})
	require.Equal(s.t, http.StatusOK, status)
	var data struct {
		Token    string `json:"token"`
		TenantID string `json:"tenant_id"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	require.Equal(s.t, tenantID, data.TenantID)
	return data.Token
}

func decodeID(t *testing.T, env envelope) uint {
	var data struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotZero(t, data.ID)
	return data.ID
}

func (s *testServer) seedAccountAndWorkflow(token string) (accountID, workflowID uint) {
	status, env := s.do(http.MethodPost, "/api/workflows", token, map[string]string{"name": "Prepare meeting"})
	require.Equal(s.t, http.StatusCreated, status)
	workflowID = decodeID(s.t, env)

	status, env = s.do(http.MethodPost, "/api/calendar/accounts", token, map[string]interface{}{
		"provider":   "caldav",
		"email":      "ops@example.com",
		"server_url": "https://dav.example.com/cal",
		"password":   "app-password",
	})
	require.Equal(s.t, http.StatusCreated, status, env.Error.Message)
	accountID = decodeID(s.t, env)
	return accountID, workflowID
}

func TestHealth(t *testing.T) {
	s := setupServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_RequiresAPIKeyAndJWT(t *testing.T) {
	s := setupServer(t)

	key := s.apiKey
	s.apiKey = "wrong"
	status, env := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "x", "password": "y"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_FAILED", env.Error.Code)
	s.apiKey = key

	status, _ = s.do(http.MethodGet, "/api/calendar/triggers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "nobody", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_FAILED", env.Error.Code)
}

func TestTriggerLifecycle(t *testing.T) {
	s := setupServer(t)
	token := s.login("acme", "alice")
	accountID, workflowID := s.seedAccountAndWorkflow(token)

	body := map[string]interface{}{
		"workflow_id":         workflowID,
		"calendar_account_id": accountID,
		"name":                "Client meetings",
		"trigger_type":        "event_created",
		"title_rules":         []map[string]interface{}{{"type": "contains", "value": "client"}},
		"data_extraction": map[string]interface{}{
			"extract_title": true,
			"custom_fields": []map[string]interface{}{
				{"name": "ticket", "source": "title", "extraction_type": "regex", "pattern": `#(\d+)`, "output_type": "number"},
			},
		},
	}
	status, env := s.do(http.MethodPost, "/api/calendar/triggers", token, body)
	require.Equal(t, http.StatusCreated, status, env.Error.Message)
	triggerID := decodeID(t, env)

	status, env = s.do(http.MethodGet, fmt.Sprintf("/api/calendar/triggers?account_id=%d", accountID), token, nil)
	require.Equal(t, http.StatusOK, status)
	var list []models.CalendarTrigger
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Client meetings", list[0].Name)

	status, env = s.do(http.MethodPut, fmt.Sprintf("/api/calendar/triggers/%d/disable", triggerID), token, nil)
	require.Equal(t, http.StatusOK, status)
	var disabled models.CalendarTrigger
	require.NoError(t, json.Unmarshal(env.Data, &disabled))
	assert.False(t, disabled.IsActive)

	status, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/calendar/triggers/%d", triggerID), token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, env = s.do(http.MethodGet, fmt.Sprintf("/api/calendar/triggers/%d", triggerID), token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestTriggerValidation(t *testing.T) {
	s := setupServer(t)
	token := s.login("acme", "alice")
	accountID, workflowID := s.seedAccountAndWorkflow(token)

	cases := []struct {
		name   string
		mutate func(map[string]interface{})
		status int
	}{
		{"unknown trigger type", func(b map[string]interface{}) { b["trigger_type"] = "event_deleted" }, http.StatusBadRequest},
		{"unknown match type", func(b map[string]interface{}) {
			b["title_rules"] = []map[string]interface{}{{"type": "fuzzy", "value": "x"}}
		}, http.StatusBadRequest},
		{"invalid regex", func(b map[string]interface{}) {
			b["title_rules"] = []map[string]interface{}{{"type": "regex", "value": "("}}
		}, http.StatusBadRequest},
		{"negative window", func(b map[string]interface{}) { b["minutes_before_start"] = -5 }, http.StatusBadRequest},
		{"unknown workflow", func(b map[string]interface{}) { b["workflow_id"] = workflowID + 100 }, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := map[string]interface{}{
				"workflow_id":         workflowID,
				"calendar_account_id": accountID,
				"name":                "Bad",
				"trigger_type":        "event_created",
			}
			tc.mutate(body)
			status, _ := s.do(http.MethodPost, "/api/calendar/triggers", token, body)
			assert.Equal(t, tc.status, status)
		})
	}
}

func TestTenantIsolation(t *testing.T) {
	s := setupServer(t)
	aliceToken := s.login("acme", "alice")
	bobToken := s.login("globex", "bob")
	accountID, _ := s.seedAccountAndWorkflow(aliceToken)

	status, _ := s.do(http.MethodGet, fmt.Sprintf("/api/calendar/accounts/%d", accountID), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env := s.do(http.MethodGet, "/api/calendar/accounts", bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestConnectAccount_Validation(t *testing.T) {
	s := setupServer(t)
	token := s.login("acme", "alice")

	status, env := s.do(http.MethodPost, "/api/calendar/accounts", token, map[string]interface{}{
		"provider": "exchange",
		"email":    "ops@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	status, _ = s.do(http.MethodPost, "/api/calendar/accounts", token, map[string]interface{}{
		"provider": "caldav",
		"email":    "ops@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	s.seedAccountAndWorkflow(token)
	status, env = s.do(http.MethodPost, "/api/calendar/accounts", token, map[string]interface{}{
		"provider":   "caldav",
		"email":      "ops@example.com",
		"server_url": "https://dav.example.com/cal",
		"password":   "again",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestManualSyncDispatches(t *testing.T) {
	s := setupServer(t)
	now := time.Now()
	s.app.Registry.Register(&stubCalDAV{events: []models.CalendarEvent{
		{ID: "evt-1", Title: "Client kickoff", StartTime: now.Add(2 * time.Hour), EndTime: now.Add(3 * time.Hour), CalendarID: "work", Status: models.EventStatusConfirmed},
		{ID: "evt-2", Title: "Lunch", StartTime: now.Add(4 * time.Hour), EndTime: now.Add(5 * time.Hour), CalendarID: "work", Status: models.EventStatusConfirmed},
	}})

	token := s.login("acme", "alice")
	accountID, workflowID := s.seedAccountAndWorkflow(token)
	status, env := s.do(http.MethodPost, "/api/calendar/triggers", token, map[string]interface{}{
		"workflow_id":         workflowID,
		"calendar_account_id": accountID,
		"name":                "Client meetings",
		"trigger_type":        "event_created",
		"title_rules":         []map[string]interface{}{{"type": "contains", "value": "client"}},
	})
	require.Equal(t, http.StatusCreated, status, env.Error.Message)

	status, env = s.do(http.MethodPost, fmt.Sprintf("/api/calendar/accounts/%d/sync", accountID), token, nil)
	require.Equal(t, http.StatusOK, status, env.Error.Message)
	var result struct {
		EventCount int `json:"event_count"`
		Dispatched int `json:"dispatched"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 2, result.EventCount)
	assert.Equal(t, 1, result.Dispatched)

	status, env = s.do(http.MethodGet, "/api/calendar/executions", token, nil)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Total      int64                          `json:"total"`
		Executions []models.ExecutionHistoryEntry `json:"executions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, "evt-1", page.Executions[0].EventID)
	assert.Equal(t, models.ExecutionSuccess, page.Executions[0].Status)

	// a second sync must not fire the same event again
	status, env = s.do(http.MethodPost, "/api/calendar/sync", token, nil)
	require.Equal(t, http.StatusOK, status)
	var results []struct {
		Dispatched int `json:"dispatched"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &results))
	require.Len(t, results, 1)
	assert.Zero(t, results[0].Dispatched)

	status, env = s.do(http.MethodGet, "/api/calendar/queue", token, nil)
	require.Equal(t, http.StatusOK, status)
	var queue struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &queue))
	assert.EqualValues(t, 2, queue.Total)
}

func TestLogsAreTenantScoped(t *testing.T) {
	s := setupServer(t)
	token := s.login("acme", "alice")
	s.seedAccountAndWorkflow(token)

	status, env := s.do(http.MethodGet, "/api/logs?module=account", token, nil)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Total int64        `json:"total"`
		Logs  []models.Log `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.NotZero(t, page.Total)
	for _, row := range page.Logs {
		assert.Equal(t, "acme", row.TenantID)
	}

	status, _ = s.do(http.MethodGet, "/api/logs?start_time=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}
