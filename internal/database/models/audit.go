package models

import (
	"time"

	"gorm.io/datatypes"
)

// Queue entry statuses
const (
	QueueStatusCompleted = "completed"
	QueueStatusFailed    = "failed"
)

// ProcessingQueueEntry records the evaluation of one event against an account's triggers
type ProcessingQueueEntry struct {
	ID                uint                              `gorm:"primaryKey" json:"id"`
	TenantID          string                            `gorm:"size:64;index" json:"tenant_id"`
	CalendarAccountID uint                              `gorm:"index" json:"calendar_account_id"`
	EventID           string                            `gorm:"size:255;index" json:"event_id"`
	EventSnapshot     datatypes.JSONType[CalendarEvent] `json:"event_snapshot"`
	MatchedTriggerIDs datatypes.JSONSlice[uint]         `json:"matched_trigger_ids"`
	Status            string                            `gorm:"size:20;index" json:"status"`
	Error             string                            `gorm:"type:text" json:"error,omitempty"`
	CreatedAt         time.Time                         `gorm:"index" json:"created_at"`
}

// Execution statuses
const (
	ExecutionSuccess = "success"
	ExecutionFailed  = "failed"
)

// ExecutionHistoryEntry records one workflow dispatch
type ExecutionHistoryEntry struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	ExecutionID    string            `gorm:"size:36;uniqueIndex;not null" json:"execution_id"`
	TenantID       string            `gorm:"size:64;index" json:"tenant_id"`
	TriggerID      uint              `gorm:"index;not null" json:"trigger_id"`
	WorkflowID     uint              `gorm:"index;not null" json:"workflow_id"`
	EventID        string            `gorm:"size:255" json:"event_id"`
	FireKey        string            `gorm:"size:512;index" json:"fire_key"`
	TriggerPayload datatypes.JSONMap `json:"trigger_payload"`
	ExtractedData  datatypes.JSONMap `json:"extracted_data"`
	Status         string            `gorm:"size:20;index" json:"status"`
	ErrorMessage   string            `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
}
