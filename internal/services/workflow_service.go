package services

import (
	"errors"
	"strings"

	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"gorm.io/gorm"
)

var (
	// ErrWorkflowNotFound indicates the workflow was not found in the tenant
	ErrWorkflowNotFound = errors.New("workflow not found")
	// ErrInvalidWorkflowData indicates invalid workflow data
	ErrInvalidWorkflowData = errors.New("invalid workflow data")
)

// WorkflowService keeps the local workflow references triggers point at
type WorkflowService struct {
	db *gorm.DB
}

// NewWorkflowService creates a new WorkflowService instance
func NewWorkflowService(db *gorm.DB) *WorkflowService {
	return &WorkflowService{db: db}
}

// CreateWorkflow registers a workflow for a tenant
func (s *WorkflowService) CreateWorkflow(tenantID, name, description string) (*models.Workflow, error) {
	name = strings.TrimSpace(name)
	if tenantID == "" || name == "" {
		return nil, ErrInvalidWorkflowData
	}
	wf := &models.Workflow{
		TenantID:    tenantID,
		Name:        name,
		Description: description,
		IsActive:    true,
	}
	if err := s.db.Create(wf).Error; err != nil {
		return nil, err
	}
	return wf, nil
}

// GetWorkflow retrieves a workflow of a tenant
func (s *WorkflowService) GetWorkflow(tenantID string, id uint) (*models.Workflow, error) {
	var wf models.Workflow
	if err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&wf).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkflowNotFound
		}
		return nil, err
	}
	return &wf, nil
}

// ListWorkflows retrieves the workflows of a tenant
func (s *WorkflowService) ListWorkflows(tenantID string) ([]models.Workflow, error) {
	var workflows []models.Workflow
	if err := s.db.Where("tenant_id = ?", tenantID).Order("id").Find(&workflows).Error; err != nil {
		return nil, err
	}
	return workflows, nil
}
