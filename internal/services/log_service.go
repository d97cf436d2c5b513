package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"gorm.io/gorm"
)

// LogService persists operation logs
type LogService struct {
	db       *gorm.DB
	logLevel models.LogLevel
}

// NewLogService creates a new LogService instance
func NewLogService(db *gorm.DB) *LogService {
	return &LogService{
		db:       db,
		logLevel: models.LogLevelInfo,
	}
}

// NewLogServiceWithLevel creates a new LogService instance with specified log level
func NewLogServiceWithLevel(db *gorm.DB, level string) *LogService {
	return &LogService{
		db:       db,
		logLevel: parseLogLevel(level),
	}
}

func parseLogLevel(level string) models.LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return models.LogLevelDebug
	case "WARN", "WARNING":
		return models.LogLevelWarn
	case "ERROR":
		return models.LogLevelError
	default:
		return models.LogLevelInfo
	}
}

// SetLogLevel sets the minimum log level
func (s *LogService) SetLogLevel(level string) {
	s.logLevel = parseLogLevel(level)
}

// GetLogLevel returns the current log level
func (s *LogService) GetLogLevel() models.LogLevel {
	return s.logLevel
}

var levelPriority = map[models.LogLevel]int{
	models.LogLevelDebug: 0,
	models.LogLevelInfo:  1,
	models.LogLevelWarn:  2,
	models.LogLevelError: 3,
}

func (s *LogService) shouldLog(level models.LogLevel) bool {
	return levelPriority[level] >= levelPriority[s.logLevel]
}

// LogEntry represents a log entry to be created
type LogEntry struct {
	TenantID string
	UserID   uint
	Level    models.LogLevel
	Module   models.LogModule
	Action   string
	Message  string
	Details  interface{} // serialized to JSON
}

// Log creates a new log entry
func (s *LogService) Log(entry LogEntry) error {
	if !s.shouldLog(entry.Level) {
		return nil
	}

	var detailsJSON string
	if entry.Details != nil {
		bytes, err := json.Marshal(entry.Details)
		if err != nil {
			detailsJSON = "{}"
		} else {
			detailsJSON = string(bytes)
		}
	}

	return s.db.Create(&models.Log{
		TenantID: entry.TenantID,
		UserID:   entry.UserID,
		Level:    string(entry.Level),
		Module:   string(entry.Module),
		Action:   entry.Action,
		Message:  entry.Message,
		Details:  detailsJSON,
	}).Error
}

// LogInfo creates an INFO level log entry
func (s *LogService) LogInfo(tenantID string, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{TenantID: tenantID, Level: models.LogLevelInfo, Module: module, Action: action, Message: message, Details: details})
}

// LogWarn creates a WARN level log entry
func (s *LogService) LogWarn(tenantID string, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{TenantID: tenantID, Level: models.LogLevelWarn, Module: module, Action: action, Message: message, Details: details})
}

// LogError creates an ERROR level log entry
func (s *LogService) LogError(tenantID string, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{TenantID: tenantID, Level: models.LogLevelError, Module: module, Action: action, Message: message, Details: details})
}

// LogDebug creates a DEBUG level log entry
func (s *LogService) LogDebug(tenantID string, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{TenantID: tenantID, Level: models.LogLevelDebug, Module: module, Action: action, Message: message, Details: details})
}

// ===== Calendar accounts =====

// AccountChangeDetails describes a calendar account change
type AccountChangeDetails struct {
	AccountID    uint   `json:"account_id"`
	AccountEmail string `json:"account_email"`
	Provider     string `json:"provider,omitempty"`
	Field        string `json:"field,omitempty"`
	NewValue     string `json:"new_value,omitempty"`
	ErrorMsg     string `json:"error_msg,omitempty"`
}

// LogAccountConnected logs a new calendar connection
func (s *LogService) LogAccountConnected(account *models.CalendarAccount) error {
	return s.LogInfo(account.TenantID, models.LogModuleAccount, "connect", "Calendar account connected", AccountChangeDetails{
		AccountID:    account.ID,
		AccountEmail: account.Email,
		Provider:     string(account.Provider),
	})
}

// LogAccountStatusChanged logs enable/disable of an account
func (s *LogService) LogAccountStatusChanged(account *models.CalendarAccount) error {
	status := "disabled"
	if account.IsActive {
		status = "enabled"
	}
	return s.LogInfo(account.TenantID, models.LogModuleAccount, "status_change", "Calendar account "+status, AccountChangeDetails{
		AccountID:    account.ID,
		AccountEmail: account.Email,
		Field:        "is_active",
		NewValue:     status,
	})
}

// LogAccountTested logs the result of a connection test
func (s *LogService) LogAccountTested(account *models.CalendarAccount, success bool, message string) error {
	details := AccountChangeDetails{AccountID: account.ID, AccountEmail: account.Email, Provider: string(account.Provider)}
	if !success {
		details.ErrorMsg = message
		return s.LogWarn(account.TenantID, models.LogModuleAccount, "test", "Calendar connection test failed", details)
	}
	return s.LogInfo(account.TenantID, models.LogModuleAccount, "test", "Calendar connection test succeeded", details)
}

// ===== Triggers =====

// TriggerChangeDetails describes a trigger change
type TriggerChangeDetails struct {
	TriggerID  uint   `json:"trigger_id"`
	Name       string `json:"name"`
	WorkflowID uint   `json:"workflow_id"`
	AccountID  uint   `json:"calendar_account_id"`
	Type       string `json:"trigger_type"`
}

// LogTriggerChange logs create/update/delete/status_change of a trigger
func (s *LogService) LogTriggerChange(action string, trigger *models.CalendarTrigger) error {
	return s.LogInfo(trigger.TenantID, models.LogModuleTrigger, action, fmt.Sprintf("Trigger %s: %s", action, trigger.Name), TriggerChangeDetails{
		TriggerID:  trigger.ID,
		Name:       trigger.Name,
		WorkflowID: trigger.WorkflowID,
		AccountID:  trigger.CalendarAccountID,
		Type:       string(trigger.TriggerType),
	})
}

// ===== Sync and dispatch =====

// SyncDetails describes one account sync
type SyncDetails struct {
	AccountID  uint   `json:"account_id"`
	EventCount int    `json:"event_count"`
	Dispatched int    `json:"dispatched"`
	Failed     int    `json:"failed"`
	Status     string `json:"status"`
	ErrorMsg   string `json:"error_msg,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// LogSync logs the result of an account sync
func (s *LogService) LogSync(tenantID string, result SyncResult) error {
	details := SyncDetails{
		AccountID:  result.AccountID,
		EventCount: result.EventCount,
		Dispatched: result.Dispatched,
		Failed:     result.Failed,
		Status:     "success",
		DurationMs: result.Duration.Milliseconds(),
	}
	if result.Err != nil {
		details.Status = "failed"
		details.ErrorMsg = result.Err.Error()
		return s.LogError(tenantID, models.LogModuleSync, "sync", "Calendar sync failed", details)
	}
	return s.LogInfo(tenantID, models.LogModuleSync, "sync", "Calendar sync completed", details)
}

// DispatchDetails describes a workflow hand-off
type DispatchDetails struct {
	ExecutionID string `json:"execution_id"`
	TriggerID   uint   `json:"trigger_id"`
	WorkflowID  uint   `json:"workflow_id"`
	EventID     string `json:"event_id"`
	Status      string `json:"status"`
	ErrorMsg    string `json:"error_msg,omitempty"`
}

// LogDispatch logs a workflow hand-off
func (s *LogService) LogDispatch(entry *models.ExecutionHistoryEntry) error {
	details := DispatchDetails{
		ExecutionID: entry.ExecutionID,
		TriggerID:   entry.TriggerID,
		WorkflowID:  entry.WorkflowID,
		EventID:     entry.EventID,
		Status:      entry.Status,
		ErrorMsg:    entry.ErrorMessage,
	}
	if entry.Status == models.ExecutionFailed {
		return s.LogError(entry.TenantID, models.LogModuleDispatch, "dispatch", "Workflow dispatch failed", details)
	}
	return s.LogInfo(entry.TenantID, models.LogModuleDispatch, "dispatch", "Workflow dispatched", details)
}

// ===== Auth =====

// AuthOperationDetails describes an authentication event
type AuthOperationDetails struct {
	Username string `json:"username,omitempty"`
	ClientIP string `json:"client_ip,omitempty"`
	Status   string `json:"status"`
	ErrorMsg string `json:"error_msg,omitempty"`
}

// LogLogin logs a login attempt
func (s *LogService) LogLogin(user *models.User, username, clientIP string, err error) error {
	entry := LogEntry{
		Level:   models.LogLevelInfo,
		Module:  models.LogModuleAuth,
		Action:  "login",
		Message: "User logged in successfully",
		Details: AuthOperationDetails{Username: username, ClientIP: clientIP, Status: "success"},
	}
	if user != nil {
		entry.TenantID = user.TenantID
		entry.UserID = user.ID
	}
	if err != nil {
		entry.Level = models.LogLevelWarn
		entry.Message = "Login attempt failed"
		entry.Details = AuthOperationDetails{Username: username, ClientIP: clientIP, Status: "failed", ErrorMsg: err.Error()}
	}
	return s.Log(entry)
}

// LogAPIKeyValidation logs a failed or successful API key check
func (s *LogService) LogAPIKeyValidation(success bool, clientIP string, err error) error {
	details := AuthOperationDetails{ClientIP: clientIP, Status: "valid"}
	level := models.LogLevelDebug
	message := "API key validated successfully"
	if !success {
		level = models.LogLevelWarn
		details.Status = "invalid"
		message = "API key validation failed"
		if err != nil {
			details.ErrorMsg = err.Error()
		}
	}
	return s.Log(LogEntry{Level: level, Module: models.LogModuleAuth, Action: "api_key_validation", Message: message, Details: details})
}

// LogAPIKeyReset logs an API key reset
func (s *LogService) LogAPIKeyReset() error {
	return s.LogInfo("", models.LogModuleCLI, "api_key_reset", "API key reset", nil)
}

// APIRequestDetails represents details for API request logs
type APIRequestDetails struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	Duration   int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// LogAPIRequest logs an API request; 4xx are warnings and 5xx errors
func (s *LogService) LogAPIRequest(tenantID string, userID uint, method, path string, statusCode int, durationMs int64, clientIP string) error {
	level := models.LogLevelDebug
	if statusCode >= 400 && statusCode < 500 {
		level = models.LogLevelWarn
	} else if statusCode >= 500 {
		level = models.LogLevelError
	}
	return s.Log(LogEntry{
		TenantID: tenantID,
		UserID:   userID,
		Level:    level,
		Module:   models.LogModuleAPI,
		Action:   "request",
		Message:  method + " " + path,
		Details: APIRequestDetails{
			Method:     method,
			Path:       path,
			StatusCode: statusCode,
			Duration:   durationMs,
			ClientIP:   clientIP,
		},
	})
}

// ===== Log Query Methods =====

// LogQuery represents query parameters for log retrieval
type LogQuery struct {
	TenantID  string
	Level     string
	Module    string
	Action    string
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	Limit     int
}

// LogQueryResult represents the result of a log query
type LogQueryResult struct {
	Total int64
	Logs  []models.Log
}

// QueryLogs retrieves logs based on query parameters
func (s *LogService) QueryLogs(query LogQuery) (*LogQueryResult, error) {
	db := s.db.Model(&models.Log{})

	if query.TenantID != "" {
		db = db.Where("tenant_id = ?", query.TenantID)
	}
	if query.Level != "" {
		db = db.Where("level = ?", strings.ToUpper(query.Level))
	}
	if query.Module != "" {
		db = db.Where("module = ?", query.Module)
	}
	if query.Action != "" {
		db = db.Where("action = ?", query.Action)
	}
	if query.StartTime != nil {
		db = db.Where("created_at >= ?", query.StartTime)
	}
	if query.EndTime != nil {
		db = db.Where("created_at <= ?", query.EndTime)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	offset := (query.Page - 1) * query.Limit

	var logs []models.Log
	if err := db.Order("created_at DESC, id DESC").Offset(offset).Limit(query.Limit).Find(&logs).Error; err != nil {
		return nil, err
	}

	return &LogQueryResult{Total: total, Logs: logs}, nil
}
