package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/services"
)

// TriggerHandler handles calendar trigger related requests
type TriggerHandler struct {
	triggerService *services.TriggerService
}

// NewTriggerHandler creates a new TriggerHandler instance
func NewTriggerHandler(triggerService *services.TriggerService) *TriggerHandler {
	return &TriggerHandler{triggerService: triggerService}
}

// MatchRuleRequest represents one text predicate
type MatchRuleRequest struct {
	Type          string `json:"type" binding:"required,oneof=contains equals starts_with ends_with regex not_contains"`
	Value         string `json:"value" binding:"required"`
	CaseSensitive bool   `json:"case_sensitive"`
}

// CustomFieldRequest represents one custom extraction
type CustomFieldRequest struct {
	Name           string `json:"name" binding:"required"`
	Source         string `json:"source" binding:"required,oneof=title description location attendees"`
	ExtractionType string `json:"extraction_type" binding:"required,oneof=regex between_strings after_string before_string"`
	Pattern        string `json:"pattern" binding:"required"`
	OutputType     string `json:"output_type" binding:"omitempty,oneof=string number date boolean"`
}

// DataExtractionRequest selects the data handed to the workflow
type DataExtractionRequest struct {
	ExtractTitle       bool                 `json:"extract_title"`
	ExtractDescription bool                 `json:"extract_description"`
	ExtractLocation    bool                 `json:"extract_location"`
	ExtractStartTime   bool                 `json:"extract_start_time"`
	ExtractEndTime     bool                 `json:"extract_end_time"`
	ExtractAttendees   bool                 `json:"extract_attendees"`
	CustomFields       []CustomFieldRequest `json:"custom_fields" binding:"omitempty,dive"`
}

// TriggerRequest represents the body of create and update requests
type TriggerRequest struct {
	WorkflowID         uint                  `json:"workflow_id" binding:"required"`
	CalendarAccountID  uint                  `json:"calendar_account_id" binding:"required"`
	Name               string                `json:"name" binding:"required,max=200"`
	Description        string                `json:"description"`
	TriggerType        string                `json:"trigger_type" binding:"required,oneof=event_created event_updated event_starts_soon event_ends reminder_time"`
	TitleRules         []MatchRuleRequest    `json:"title_rules" binding:"omitempty,dive"`
	DescriptionRules   []MatchRuleRequest    `json:"description_rules" binding:"omitempty,dive"`
	LocationRules      []MatchRuleRequest    `json:"location_rules" binding:"omitempty,dive"`
	AttendeeRules      []MatchRuleRequest    `json:"attendee_rules" binding:"omitempty,dive"`
	Calendars          []string              `json:"calendars" binding:"omitempty,dive,required"`
	MinutesBeforeStart *int                  `json:"minutes_before_start" binding:"omitempty,min=0,max=10080"`
	MinutesAfterEnd    *int                  `json:"minutes_after_end" binding:"omitempty,min=0,max=10080"`
	DataExtraction     DataExtractionRequest `json:"data_extraction"`
}

func toRules(list []MatchRuleRequest) []models.MatchRule {
	rules := make([]models.MatchRule, 0, len(list))
	for _, r := range list {
		rules = append(rules, models.MatchRule{
			Type:          models.MatchType(r.Type),
			Value:         r.Value,
			CaseSensitive: r.CaseSensitive,
		})
	}
	return rules
}

func (r TriggerRequest) toInput() services.TriggerInput {
	fields := make([]models.CustomField, 0, len(r.DataExtraction.CustomFields))
	for _, f := range r.DataExtraction.CustomFields {
		output := f.OutputType
		if output == "" {
			output = models.OutputString
		}
		fields = append(fields, models.CustomField{
			Name:           f.Name,
			Source:         f.Source,
			ExtractionType: f.ExtractionType,
			Pattern:        f.Pattern,
			OutputType:     output,
		})
	}

	return services.TriggerInput{
		WorkflowID:         r.WorkflowID,
		CalendarAccountID:  r.CalendarAccountID,
		Name:               r.Name,
		Description:        r.Description,
		TriggerType:        models.TriggerType(r.TriggerType),
		TitleRules:         toRules(r.TitleRules),
		DescriptionRules:   toRules(r.DescriptionRules),
		LocationRules:      toRules(r.LocationRules),
		AttendeeRules:      toRules(r.AttendeeRules),
		Calendars:          r.Calendars,
		MinutesBeforeStart: r.MinutesBeforeStart,
		MinutesAfterEnd:    r.MinutesAfterEnd,
		DataExtraction: models.DataExtractionRules{
			ExtractTitle:       r.DataExtraction.ExtractTitle,
			ExtractDescription: r.DataExtraction.ExtractDescription,
			ExtractLocation:    r.DataExtraction.ExtractLocation,
			ExtractStartTime:   r.DataExtraction.ExtractStartTime,
			ExtractEndTime:     r.DataExtraction.ExtractEndTime,
			ExtractAttendees:   r.DataExtraction.ExtractAttendees,
			CustomFields:       fields,
		},
	}
}

// ListTriggers returns the triggers of the tenant, optionally for one account
// GET /api/calendar/triggers?account_id=
func (h *TriggerHandler) ListTriggers(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	list, err := h.triggerService.ListTriggers(tenantID, queryUint(c, "account_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// CreateTrigger creates a trigger
// POST /api/calendar/triggers
func (h *TriggerHandler) CreateTrigger(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	trigger, err := h.triggerService.CreateTrigger(tenantID, req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, trigger)
}

// GetTrigger returns one trigger
// GET /api/calendar/triggers/:id
func (h *TriggerHandler) GetTrigger(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	trigger, err := h.triggerService.GetTrigger(tenantID, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, trigger)
}

// UpdateTrigger replaces a trigger definition
// PUT /api/calendar/triggers/:id
func (h *TriggerHandler) UpdateTrigger(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	trigger, err := h.triggerService.UpdateTrigger(tenantID, id, req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, trigger)
}

// DeleteTrigger deletes a trigger
// DELETE /api/calendar/triggers/:id
func (h *TriggerHandler) DeleteTrigger(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.triggerService.DeleteTrigger(tenantID, id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Trigger deleted successfully"})
}

// EnableTrigger enables a trigger
// PUT /api/calendar/triggers/:id/enable
func (h *TriggerHandler) EnableTrigger(c *gin.Context) {
	h.setActive(c, true)
}

// DisableTrigger disables a trigger
// PUT /api/calendar/triggers/:id/disable
func (h *TriggerHandler) DisableTrigger(c *gin.Context) {
	h.setActive(c, false)
}

func (h *TriggerHandler) setActive(c *gin.Context, active bool) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	trigger, err := h.triggerService.SetTriggerActive(tenantID, id, active)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, trigger)
}
