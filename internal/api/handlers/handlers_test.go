package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/providers"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/services"
)

func TestRespondServiceError_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: name is required", services.ErrInvalidTriggerData), http.StatusBadRequest, CodeValidation},
		{services.ErrInvalidAccountData, http.StatusBadRequest, CodeValidation},
		{services.ErrTriggerNotFound, http.StatusNotFound, CodeNotFound},
		{services.ErrAccountNotFound, http.StatusNotFound, CodeNotFound},
		{services.ErrExecutionNotFound, http.StatusNotFound, CodeNotFound},
		{services.ErrAccountAlreadyExists, http.StatusConflict, CodeConflict},
		{services.ErrSyncInProgress, http.StatusConflict, CodeConflict},
		{providers.ErrOAuthNotConfigured, http.StatusBadRequest, CodeValidation},
		{errors.New("disk full"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondServiceError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			var body struct {
				Success bool `json:"success"`
				Error   struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tc.code, body.Error.Code)
		})
	}
}

func TestStateStore_SingleUse(t *testing.T) {
	store := NewStateStore()
	token, err := store.Put(OAuthState{TenantID: "acme", UserID: 7, Provider: models.ProviderGoogle})
	require.NoError(t, err)

	state, ok := store.Take(token)
	require.True(t, ok)
	assert.Equal(t, "acme", state.TenantID)
	assert.Equal(t, uint(7), state.UserID)

	_, ok = store.Take(token)
	assert.False(t, ok)
	_, ok = store.Take("unknown")
	assert.False(t, ok)
}

func TestStateStore_Expiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	store := NewStateStore()
	store.now = func() time.Time { return now }

	token, err := store.Put(OAuthState{TenantID: "acme", Provider: models.ProviderOutlook})
	require.NoError(t, err)

	now = now.Add(stateTTL + time.Second)
	_, ok := store.Take(token)
	assert.False(t, ok)
}

func TestTriggerRequest_ToInput(t *testing.T) {
	before := 30
	req := TriggerRequest{
		WorkflowID:         1,
		CalendarAccountID:  2,
		Name:               "Standups",
		TriggerType:        "event_starts_soon",
		TitleRules:         []MatchRuleRequest{{Type: "starts_with", Value: "Standup", CaseSensitive: true}},
		MinutesBeforeStart: &before,
		DataExtraction: DataExtractionRequest{
			ExtractStartTime: true,
			CustomFields: []CustomFieldRequest{
				{Name: "room", Source: "location", ExtractionType: "after_string", Pattern: "Room "},
			},
		},
	}

	input := req.toInput()
	assert.Equal(t, models.TriggerEventStartsSoon, input.TriggerType)
	require.Len(t, input.TitleRules, 1)
	assert.Equal(t, models.MatchStartsWith, input.TitleRules[0].Type)
	assert.True(t, input.TitleRules[0].CaseSensitive)
	assert.Empty(t, input.LocationRules)
	assert.Equal(t, 30, *input.MinutesBeforeStart)
	require.Len(t, input.DataExtraction.CustomFields, 1)
	assert.Equal(t, models.OutputString, input.DataExtraction.CustomFields[0].OutputType)
	assert.NoError(t, services.ValidateTriggerInput(input))
}
