package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/triggers"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrTriggerNotFound indicates the trigger was not found in the tenant
	ErrTriggerNotFound = errors.New("calendar trigger not found")
	// ErrInvalidTriggerData indicates an invalid trigger definition
	ErrInvalidTriggerData = errors.New("invalid trigger data")
)

// TriggerInput is the editable part of a trigger definition
type TriggerInput struct {
	WorkflowID         uint
	CalendarAccountID  uint
	Name               string
	Description        string
	TriggerType        models.TriggerType
	TitleRules         []models.MatchRule
	DescriptionRules   []models.MatchRule
	LocationRules      []models.MatchRule
	AttendeeRules      []models.MatchRule
	Calendars          []string
	MinutesBeforeStart *int
	MinutesAfterEnd    *int
	DataExtraction     models.DataExtractionRules
}

// TriggerService manages calendar trigger definitions
type TriggerService struct {
	db         *gorm.DB
	logService *LogService
}

// NewTriggerService creates a new TriggerService instance
func NewTriggerService(db *gorm.DB) *TriggerService {
	return &TriggerService{db: db, logService: NewLogService(db)}
}

func invalidTrigger(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidTriggerData, fmt.Sprintf(format, args...))
}

// ValidateTriggerInput checks enums, patterns and windows of a definition
func ValidateTriggerInput(input TriggerInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return invalidTrigger("name is required")
	}
	if !input.TriggerType.IsValid() {
		return invalidTrigger("unknown trigger type %q", input.TriggerType)
	}
	ruleSets := map[string][]models.MatchRule{
		"title_rules":       input.TitleRules,
		"description_rules": input.DescriptionRules,
		"location_rules":    input.LocationRules,
		"attendee_rules":    input.AttendeeRules,
	}
	for name, rules := range ruleSets {
		for i, rule := range rules {
			if err := triggers.ValidateRule(rule); err != nil {
				return invalidTrigger("%s[%d]: %v", name, i, err)
			}
		}
	}
	if input.MinutesBeforeStart != nil && *input.MinutesBeforeStart < 0 {
		return invalidTrigger("minutes_before_start must not be negative")
	}
	if input.MinutesAfterEnd != nil && *input.MinutesAfterEnd < 0 {
		return invalidTrigger("minutes_after_end must not be negative")
	}
	seen := make(map[string]bool)
	for _, field := range input.DataExtraction.CustomFields {
		if err := triggers.ValidateCustomField(field); err != nil {
			return invalidTrigger("custom field %q: %v", field.Name, err)
		}
		if seen[field.Name] {
			return invalidTrigger("duplicate custom field %q", field.Name)
		}
		seen[field.Name] = true
	}
	return nil
}

// checkReferences verifies workflow and account exist in the tenant
func (s *TriggerService) checkReferences(tenantID string, workflowID, accountID uint) error {
	var count int64
	if err := s.db.Model(&models.Workflow{}).Where("id = ? AND tenant_id = ?", workflowID, tenantID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrWorkflowNotFound
	}
	if err := s.db.Model(&models.CalendarAccount{}).Where("id = ? AND tenant_id = ?", accountID, tenantID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func applyTriggerInput(trigger *models.CalendarTrigger, input TriggerInput) {
	trigger.WorkflowID = input.WorkflowID
	trigger.CalendarAccountID = input.CalendarAccountID
	trigger.Name = strings.TrimSpace(input.Name)
	trigger.Description = input.Description
	trigger.TriggerType = input.TriggerType
	trigger.TitleRules = datatypes.NewJSONSlice(nonNilRules(input.TitleRules))
	trigger.DescriptionRules = datatypes.NewJSONSlice(nonNilRules(input.DescriptionRules))
	trigger.LocationRules = datatypes.NewJSONSlice(nonNilRules(input.LocationRules))
	trigger.AttendeeRules = datatypes.NewJSONSlice(nonNilRules(input.AttendeeRules))
	calendars := input.Calendars
	if calendars == nil {
		calendars = []string{}
	}
	trigger.Calendars = datatypes.NewJSONSlice(calendars)
	trigger.MinutesBeforeStart = input.MinutesBeforeStart
	trigger.MinutesAfterEnd = input.MinutesAfterEnd
	trigger.DataExtraction = datatypes.NewJSONType(input.DataExtraction)
}

func nonNilRules(rules []models.MatchRule) []models.MatchRule {
	if rules == nil {
		return []models.MatchRule{}
	}
	return rules
}

// CreateTrigger validates and stores a new active trigger
func (s *TriggerService) CreateTrigger(tenantID string, input TriggerInput) (*models.CalendarTrigger, error) {
	if err := ValidateTriggerInput(input); err != nil {
		return nil, err
	}
	if err := s.checkReferences(tenantID, input.WorkflowID, input.CalendarAccountID); err != nil {
		return nil, err
	}

	trigger := &models.CalendarTrigger{TenantID: tenantID, IsActive: true}
	applyTriggerInput(trigger, input)
	if err := s.db.Create(trigger).Error; err != nil {
		return nil, err
	}

	s.logService.LogTriggerChange("create", trigger)
	return trigger, nil
}

// GetTrigger retrieves a trigger of a tenant
func (s *TriggerService) GetTrigger(tenantID string, id uint) (*models.CalendarTrigger, error) {
	var trigger models.CalendarTrigger
	if err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&trigger).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTriggerNotFound
		}
		return nil, err
	}
	return &trigger, nil
}

// ListTriggers lists the triggers of a tenant; accountID 0 means all accounts
func (s *TriggerService) ListTriggers(tenantID string, accountID uint) ([]models.CalendarTrigger, error) {
	db := s.db.Where("tenant_id = ?", tenantID)
	if accountID != 0 {
		db = db.Where("calendar_account_id = ?", accountID)
	}
	var list []models.CalendarTrigger
	if err := db.Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateTrigger replaces the definition of an existing trigger
func (s *TriggerService) UpdateTrigger(tenantID string, id uint, input TriggerInput) (*models.CalendarTrigger, error) {
	if err := ValidateTriggerInput(input); err != nil {
		return nil, err
	}
	trigger, err := s.GetTrigger(tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(tenantID, input.WorkflowID, input.CalendarAccountID); err != nil {
		return nil, err
	}

	applyTriggerInput(trigger, input)
	if err := s.db.Save(trigger).Error; err != nil {
		return nil, err
	}

	s.logService.LogTriggerChange("update", trigger)
	return trigger, nil
}

// SetTriggerActive enables or disables a trigger
func (s *TriggerService) SetTriggerActive(tenantID string, id uint, active bool) (*models.CalendarTrigger, error) {
	trigger, err := s.GetTrigger(tenantID, id)
	if err != nil {
		return nil, err
	}
	trigger.IsActive = active
	if err := s.db.Model(trigger).Update("is_active", active).Error; err != nil {
		return nil, err
	}
	action := "disable"
	if active {
		action = "enable"
	}
	s.logService.LogTriggerChange(action, trigger)
	return trigger, nil
}

// DeleteTrigger removes a trigger; its execution history is kept
func (s *TriggerService) DeleteTrigger(tenantID string, id uint) error {
	trigger, err := s.GetTrigger(tenantID, id)
	if err != nil {
		return err
	}
	if err := s.db.Delete(trigger).Error; err != nil {
		return err
	}
	s.logService.LogTriggerChange("delete", trigger)
	return nil
}

// ActiveTriggersForAccount lists the active triggers bound to an account
func (s *TriggerService) ActiveTriggersForAccount(accountID uint) ([]models.CalendarTrigger, error) {
	var list []models.CalendarTrigger
	err := s.db.Where("calendar_account_id = ? AND is_active = ?", accountID, true).Order("id").Find(&list).Error
	return list, err
}

// RecordFire bumps the fire counter and last_triggered of a trigger
func (s *TriggerService) RecordFire(triggerID uint, at time.Time) error {
	return s.db.Model(&models.CalendarTrigger{}).Where("id = ?", triggerID).Updates(map[string]interface{}{
		"trigger_count":  gorm.Expr("trigger_count + ?", 1),
		"last_triggered": at,
	}).Error
}
