package services

import (
	"errors"

	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrExecutionNotFound indicates no execution with that id exists in the tenant
var ErrExecutionNotFound = errors.New("execution not found")

// AuditService writes and reads the processing queue and execution history
type AuditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditService instance
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// RecordQueueEntry appends one evaluation record for an event
func (s *AuditService) RecordQueueEntry(account *models.CalendarAccount, event models.CalendarEvent, matched []uint, evalErr error) (*models.ProcessingQueueEntry, error) {
	if matched == nil {
		matched = []uint{}
	}
	entry := &models.ProcessingQueueEntry{
		TenantID:          account.TenantID,
		CalendarAccountID: account.ID,
		EventID:           event.ID,
		EventSnapshot:     datatypes.NewJSONType(event),
		MatchedTriggerIDs: datatypes.NewJSONSlice(matched),
		Status:            models.QueueStatusCompleted,
	}
	if evalErr != nil {
		entry.Status = models.QueueStatusFailed
		entry.Error = evalErr.Error()
	}
	if err := s.db.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// AuditQuery filters audit listings
type AuditQuery struct {
	TenantID  string
	TriggerID uint
	AccountID uint
	Status    string
	Page      int
	Limit     int
}

func (q *AuditQuery) normalize() {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
}

// ListExecutions returns a page of execution history, newest first
func (s *AuditService) ListExecutions(query AuditQuery) ([]models.ExecutionHistoryEntry, int64, error) {
	query.normalize()
	db := s.db.Model(&models.ExecutionHistoryEntry{}).Where("tenant_id = ?", query.TenantID)
	if query.TriggerID != 0 {
		db = db.Where("trigger_id = ?", query.TriggerID)
	}
	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []models.ExecutionHistoryEntry
	err := db.Order("started_at DESC, id DESC").Offset((query.Page - 1) * query.Limit).Limit(query.Limit).Find(&entries).Error
	return entries, total, err
}

// GetExecution retrieves one execution by its execution id
func (s *AuditService) GetExecution(tenantID, executionID string) (*models.ExecutionHistoryEntry, error) {
	var entry models.ExecutionHistoryEntry
	if err := s.db.Where("tenant_id = ? AND execution_id = ?", tenantID, executionID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExecutionNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// ListQueue returns a page of processing queue entries, newest first
func (s *AuditService) ListQueue(query AuditQuery) ([]models.ProcessingQueueEntry, int64, error) {
	query.normalize()
	db := s.db.Model(&models.ProcessingQueueEntry{}).Where("tenant_id = ?", query.TenantID)
	if query.AccountID != 0 {
		db = db.Where("calendar_account_id = ?", query.AccountID)
	}
	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []models.ProcessingQueueEntry
	err := db.Order("created_at DESC, id DESC").Offset((query.Page - 1) * query.Limit).Limit(query.Limit).Find(&entries).Error
	return entries, total, err
}
