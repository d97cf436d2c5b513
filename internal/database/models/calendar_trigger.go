package models

import (
	"time"

	"gorm.io/datatypes"
)

// TriggerType selects when a trigger is considered for an event
type TriggerType string

const (
	TriggerEventCreated    TriggerType = "event_created"
	TriggerEventUpdated    TriggerType = "event_updated"
	TriggerEventStartsSoon TriggerType = "event_starts_soon"
	TriggerEventEnds       TriggerType = "event_ends"
	TriggerReminderTime    TriggerType = "reminder_time"
)

// IsValid checks if the trigger type is known
func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerEventCreated, TriggerEventUpdated, TriggerEventStartsSoon, TriggerEventEnds, TriggerReminderTime:
		return true
	}
	return false
}

// MatchType is the comparison a MatchRule performs
type MatchType string

const (
	MatchContains    MatchType = "contains"
	MatchEquals      MatchType = "equals"
	MatchStartsWith  MatchType = "starts_with"
	MatchEndsWith    MatchType = "ends_with"
	MatchRegex       MatchType = "regex"
	MatchNotContains MatchType = "not_contains"
)

// IsValid checks if the match type is known
func (m MatchType) IsValid() bool {
	switch m {
	case MatchContains, MatchEquals, MatchStartsWith, MatchEndsWith, MatchRegex, MatchNotContains:
		return true
	}
	return false
}

// MatchRule is a single text predicate
type MatchRule struct {
	Type          MatchType `json:"type"`
	Value         string    `json:"value"`
	CaseSensitive bool      `json:"case_sensitive,omitempty"`
}

// Custom field sources
const (
	SourceTitle       = "title"
	SourceDescription = "description"
	SourceLocation    = "location"
	SourceAttendees   = "attendees"
)

// Extraction types
const (
	ExtractRegex          = "regex"
	ExtractBetweenStrings = "between_strings"
	ExtractAfterString    = "after_string"
	ExtractBeforeString   = "before_string"
)

// Output types
const (
	OutputString  = "string"
	OutputNumber  = "number"
	OutputDate    = "date"
	OutputBoolean = "boolean"
)

// BetweenDelimiter separates the two boundaries of a between_strings pattern
const BetweenDelimiter = "|||"

// CustomField describes how to pull one named value out of event text
type CustomField struct {
	Name           string `json:"name"`
	Source         string `json:"source"`
	ExtractionType string `json:"extraction_type"`
	Pattern        string `json:"pattern"`
	OutputType     string `json:"output_type"`
}

// DataExtractionRules selects the data handed to the workflow on a match
type DataExtractionRules struct {
	ExtractTitle       bool          `json:"extract_title"`
	ExtractDescription bool          `json:"extract_description"`
	ExtractLocation    bool          `json:"extract_location"`
	ExtractStartTime   bool          `json:"extract_start_time"`
	ExtractEndTime     bool          `json:"extract_end_time"`
	ExtractAttendees   bool          `json:"extract_attendees"`
	CustomFields       []CustomField `json:"custom_fields,omitempty"`
}

// Window defaults
const (
	DefaultMinutesBeforeStart = 15
	DefaultMinutesAfterEnd    = 0
)

// CalendarTrigger binds a rule set on one calendar account to one workflow
type CalendarTrigger struct {
	ID                 uint                                    `gorm:"primaryKey" json:"id"`
	TenantID           string                                  `gorm:"size:64;index;not null" json:"tenant_id"`
	WorkflowID         uint                                    `gorm:"index;not null" json:"workflow_id"`
	CalendarAccountID  uint                                    `gorm:"index;not null" json:"calendar_account_id"`
	Name               string                                  `gorm:"size:200;not null" json:"name"`
	Description        string                                  `gorm:"type:text" json:"description"`
	TriggerType        TriggerType                             `gorm:"size:30;not null" json:"trigger_type"`
	TitleRules         datatypes.JSONSlice[MatchRule]          `json:"title_rules"`
	DescriptionRules   datatypes.JSONSlice[MatchRule]          `json:"description_rules"`
	LocationRules      datatypes.JSONSlice[MatchRule]          `json:"location_rules"`
	AttendeeRules      datatypes.JSONSlice[MatchRule]          `json:"attendee_rules"`
	Calendars          datatypes.JSONSlice[string]             `json:"calendars"`
	MinutesBeforeStart *int                                    `json:"minutes_before_start,omitempty"`
	MinutesAfterEnd    *int                                    `json:"minutes_after_end,omitempty"`
	DataExtraction     datatypes.JSONType[DataExtractionRules] `json:"data_extraction"`
	IsActive           bool                                    `gorm:"default:true;index" json:"is_active"`
	TriggerCount       int                                     `gorm:"default:0" json:"trigger_count"`
	LastTriggered      *time.Time                              `json:"last_triggered,omitempty"`
	CreatedAt          time.Time                               `json:"created_at"`
	UpdatedAt          time.Time                               `json:"updated_at"`
}

// StartWindow returns minutes_before_start or its default
func (t *CalendarTrigger) StartWindow() int {
	if t.MinutesBeforeStart == nil {
		return DefaultMinutesBeforeStart
	}
	return *t.MinutesBeforeStart
}

// EndWindow returns minutes_after_end or its default
func (t *CalendarTrigger) EndWindow() int {
	if t.MinutesAfterEnd == nil {
		return DefaultMinutesAfterEnd
	}
	return *t.MinutesAfterEnd
}
