package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
)

func TestEngineFunc(t *testing.T) {
	var got ExecutionRequest
	engine := EngineFunc(func(_ context.Context, req ExecutionRequest) error {
		got = req
		return nil
	})

	req := ExecutionRequest{ExecutionID: "e-1", WorkflowID: 7, TriggerType: TriggerTypeCalendar}
	require.NoError(t, engine.Execute(context.Background(), req))
	assert.Equal(t, req, got)

	failing := EngineFunc(func(context.Context, ExecutionRequest) error { return errors.New("boom") })
	assert.EqualError(t, failing.Execute(context.Background(), req), "boom")
}

func TestLogEngine(t *testing.T) {
	assert.NoError(t, LogEngine{}.Execute(context.Background(), ExecutionRequest{WorkflowID: 1}))
	assert.Error(t, LogEngine{}.Execute(context.Background(), ExecutionRequest{}))
}

func TestExecutionRequestJSON(t *testing.T) {
	req := ExecutionRequest{
		ExecutionID: "e-1",
		WorkflowID:  3,
		TriggerType: TriggerTypeCalendar,
		TriggerData: map[string]any{"title": "Kickoff"},
		Context: ExecutionContext{
			CalendarTrigger: &models.CalendarTrigger{ID: 9, Name: "kickoffs"},
			OriginalEvent:   &models.CalendarEvent{ID: "evt"},
		},
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "calendar", decoded["trigger_type"])
	assert.Equal(t, "Kickoff", decoded["trigger_data"].(map[string]any)["title"])
	ctx := decoded["context"].(map[string]any)
	assert.Equal(t, "kickoffs", ctx["calendar_trigger"].(map[string]any)["name"])
	assert.Equal(t, "evt", ctx["original_event"].(map[string]any)["id"])
}
