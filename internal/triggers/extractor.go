package triggers

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
)

// Keys added to every extraction result
const (
	MetadataKey        = "_metadata"
	ReminderContextKey = "_reminderContext"
)

var (
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

	dateLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"2006/01/02",
		"02/01/2006 15:04",
		"02/01/2006",
		time.RFC1123Z,
		time.RFC1123,
		"January 2, 2006",
		"Jan 2, 2006",
		"2 January 2006",
	}

	truthy = map[string]bool{"true": true, "1": true, "yes": true, "sim": true}
)

// Extract builds the workflow payload for a matched event.
// Custom fields that cannot be extracted or coerced are left out of the map.
func Extract(trigger *models.CalendarTrigger, event *models.CalendarEvent) map[string]any {
	rules := trigger.DataExtraction.Data()
	data := make(map[string]any)

	if rules.ExtractTitle {
		data["title"] = event.Title
	}
	if rules.ExtractDescription {
		data["description"] = event.Description
	}
	if rules.ExtractLocation {
		data["location"] = event.Location
	}
	if rules.ExtractStartTime {
		data["start_time"] = event.StartTime.Format(time.RFC3339)
	}
	if rules.ExtractEndTime {
		data["end_time"] = event.EndTime.Format(time.RFC3339)
	}
	if rules.ExtractAttendees {
		attendees := event.Attendees
		if attendees == nil {
			attendees = []models.Attendee{}
		}
		data["attendees"] = attendees
	}

	for _, field := range rules.CustomFields {
		if value, ok := ExtractField(field, event); ok {
			data[field.Name] = value
		}
	}

	data[MetadataKey] = Metadata(event)
	return data
}

// Metadata describes the event a payload was built from
func Metadata(event *models.CalendarEvent) map[string]any {
	meta := map[string]any{
		"event_id":      event.ID,
		"calendar_id":   event.CalendarID,
		"calendar_name": event.CalendarName,
		"is_all_day":    event.IsAllDay,
		"is_recurring":  event.IsRecurring,
		"status":        string(event.Status),
		"organizer":     nil,
		"created":       formatOptional(event.Created),
		"updated":       formatOptional(event.Updated),
	}
	if event.Organizer != nil {
		meta["organizer"] = map[string]any{
			"email":        event.Organizer.Email,
			"display_name": event.Organizer.DisplayName,
		}
	}
	return meta
}

// ReminderContext is attached to payloads fired by event_starts_soon triggers
func ReminderContext(trigger *models.CalendarTrigger, event *models.CalendarEvent, now time.Time) map[string]any {
	return map[string]any{
		"minutes_until_start": MinutesUntilStart(event, now),
		"reminder_minutes":    trigger.StartWindow(),
		"event_start_time":    event.StartTime.Format(time.RFC3339),
	}
}

func formatOptional(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339)
}

// ExtractField applies one custom field definition.
// ok is false when nothing was found or the value could not be coerced.
func ExtractField(field models.CustomField, event *models.CalendarEvent) (any, bool) {
	text := sourceText(field.Source, event)

	raw, found := extractRaw(field, text)
	if !found {
		return nil, false
	}
	return Coerce(raw, field.OutputType)
}

func sourceText(source string, event *models.CalendarEvent) string {
	switch source {
	case models.SourceTitle:
		return event.Title
	case models.SourceDescription:
		return event.Description
	case models.SourceLocation:
		return event.Location
	case models.SourceAttendees:
		return AttendeesText(event.Attendees)
	default:
		return ""
	}
}

func extractRaw(field models.CustomField, text string) (string, bool) {
	switch field.ExtractionType {
	case models.ExtractRegex:
		re, err := compileRegex("(?i)" + field.Pattern)
		if err != nil {
			log.Printf("[TriggerExtractor] Invalid pattern for field %s: %v", field.Name, err)
			return "", false
		}
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		if len(m) > 1 && m[1] != "" {
			return m[1], true
		}
		return m[0], true

	case models.ExtractBetweenStrings:
		return between(text, field.Pattern)

	case models.ExtractAfterString:
		idx := strings.Index(text, field.Pattern)
		if idx < 0 {
			return "", false
		}
		return strings.TrimSpace(text[idx+len(field.Pattern):]), true

	case models.ExtractBeforeString:
		idx := strings.Index(text, field.Pattern)
		if idx < 0 {
			return "", false
		}
		return strings.TrimSpace(text[:idx]), true
	}
	return "", false
}

// between returns the trimmed text strictly between the two boundaries of pattern.
// The end boundary is only searched after the start boundary.
func between(text, pattern string) (string, bool) {
	start, end, ok := strings.Cut(pattern, models.BetweenDelimiter)
	if !ok {
		return "", false
	}
	i := strings.Index(text, start)
	if i < 0 {
		return "", false
	}
	from := i + len(start)
	j := strings.Index(text[from:], end)
	if j < 0 {
		return "", false
	}
	return strings.TrimSpace(text[from : from+j]), true
}

// Coerce converts an extracted string to the field's output type
func Coerce(raw, outputType string) (any, bool) {
	switch outputType {
	case models.OutputNumber:
		m := leadingFloat.FindString(strings.TrimSpace(raw))
		if m == "" {
			return nil, false
		}
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return nil, false
		}
		return f, true

	case models.OutputDate:
		t, err := ParseDate(raw)
		if err != nil {
			return nil, false
		}
		return t, true

	case models.OutputBoolean:
		return truthy[strings.ToLower(strings.TrimSpace(raw))], true

	default:
		return raw, true
	}
}

// ParseDate tries every accepted layout in order
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// ValidateCustomField checks a custom field definition before it is stored
func ValidateCustomField(field models.CustomField) error {
	if field.Name == "" {
		return fmt.Errorf("custom field name is required")
	}
	if strings.HasPrefix(field.Name, "_") {
		return fmt.Errorf("custom field name %q is reserved", field.Name)
	}
	switch field.Source {
	case models.SourceTitle, models.SourceDescription, models.SourceLocation, models.SourceAttendees:
	default:
		return fmt.Errorf("custom field %s: unknown source %q", field.Name, field.Source)
	}
	switch field.ExtractionType {
	case models.ExtractRegex:
		if _, err := compileRegex("(?i)" + field.Pattern); err != nil {
			return fmt.Errorf("custom field %s: invalid regex: %w", field.Name, err)
		}
	case models.ExtractBetweenStrings:
		if !strings.Contains(field.Pattern, models.BetweenDelimiter) {
			return fmt.Errorf("custom field %s: pattern must contain %q", field.Name, models.BetweenDelimiter)
		}
	case models.ExtractAfterString, models.ExtractBeforeString:
		if field.Pattern == "" {
			return fmt.Errorf("custom field %s: pattern is required", field.Name)
		}
	default:
		return fmt.Errorf("custom field %s: unknown extraction type %q", field.Name, field.ExtractionType)
	}
	switch field.OutputType {
	case models.OutputString, models.OutputNumber, models.OutputDate, models.OutputBoolean, "":
	default:
		return fmt.Errorf("custom field %s: unknown output type %q", field.Name, field.OutputType)
	}
	return nil
}
