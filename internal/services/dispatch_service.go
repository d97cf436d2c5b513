package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/triggers"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/workflow"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DispatchService hands matched events to the workflow engine and keeps execution history
type DispatchService struct {
	db         *gorm.DB
	engine     workflow.Engine
	logService *LogService
	now        func() time.Time
}

// NewDispatchService creates a new DispatchService instance
func NewDispatchService(db *gorm.DB, engine workflow.Engine) *DispatchService {
	return &DispatchService{
		db:         db,
		engine:     engine,
		logService: NewLogService(db),
		now:        time.Now,
	}
}

// AlreadyFired reports whether a successful execution with this fire key exists
func (s *DispatchService) AlreadyFired(fireKey string) (bool, error) {
	var count int64
	err := s.db.Model(&models.ExecutionHistoryEntry{}).
		Where("fire_key = ? AND status = ?", fireKey, models.ExecutionSuccess).
		Count(&count).Error
	return count > 0, err
}

func toJSONMap(v interface{}) datatypes.JSONMap {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSONMap{}
	}
	m := datatypes.JSONMap{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return datatypes.JSONMap{}
	}
	return m
}

// Dispatch records an execution and starts the trigger's workflow.
// The returned entry reflects the final status; a hand-off failure is
// also returned as error.
func (s *DispatchService) Dispatch(ctx context.Context, trigger *models.CalendarTrigger, event *models.CalendarEvent, extracted map[string]any) (*models.ExecutionHistoryEntry, error) {
	startedAt := s.now()
	req := workflow.ExecutionRequest{
		ExecutionID: uuid.NewString(),
		TenantID:    trigger.TenantID,
		WorkflowID:  trigger.WorkflowID,
		TriggerType: workflow.TriggerTypeCalendar,
		TriggerData: extracted,
		Context: workflow.ExecutionContext{
			CalendarTrigger: trigger,
			OriginalEvent:   event,
		},
		RequestedAt: startedAt,
	}

	entry := &models.ExecutionHistoryEntry{
		ExecutionID:    req.ExecutionID,
		TenantID:       trigger.TenantID,
		TriggerID:      trigger.ID,
		WorkflowID:     trigger.WorkflowID,
		EventID:        event.ID,
		FireKey:        triggers.FireKey(trigger, event),
		TriggerPayload: toJSONMap(req),
		ExtractedData:  toJSONMap(extracted),
		Status:         models.ExecutionSuccess,
		StartedAt:      startedAt,
	}
	if err := s.db.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("record execution: %w", err)
	}

	execErr := s.engine.Execute(ctx, req)
	completedAt := s.now()
	entry.CompletedAt = &completedAt
	updates := map[string]interface{}{"completed_at": completedAt}
	if execErr != nil {
		entry.Status = models.ExecutionFailed
		entry.ErrorMessage = execErr.Error()
		updates["status"] = models.ExecutionFailed
		updates["error_message"] = execErr.Error()
		log.Printf("[Dispatch] Execution %s of workflow %d failed: %v", entry.ExecutionID, entry.WorkflowID, execErr)
	}
	if err := s.db.Model(&models.ExecutionHistoryEntry{}).Where("execution_id = ?", entry.ExecutionID).Updates(updates).Error; err != nil {
		log.Printf("[Dispatch] Failed to update execution %s: %v", entry.ExecutionID, err)
	}

	s.logService.LogDispatch(entry)
	if execErr != nil {
		return entry, fmt.Errorf("workflow %d: %w", entry.WorkflowID, execErr)
	}
	return entry, nil
}
