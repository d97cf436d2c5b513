package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/services"
)

// WorkflowHandler exposes the workflows triggers can point at
type WorkflowHandler struct {
	workflowService *services.WorkflowService
}

// NewWorkflowHandler creates a new WorkflowHandler instance
func NewWorkflowHandler(workflowService *services.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflowService: workflowService}
}

// CreateWorkflowRequest represents the request to register a workflow
type CreateWorkflowRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description"`
}

// ListWorkflows returns the workflows of the tenant
// GET /api/workflows
func (h *WorkflowHandler) ListWorkflows(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	list, err := h.workflowService.ListWorkflows(tenantID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// CreateWorkflow registers a workflow
// POST /api/workflows
func (h *WorkflowHandler) CreateWorkflow(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	var req CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	workflow, err := h.workflowService.CreateWorkflow(tenantID, req.Name, req.Description)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, workflow)
}
