// Package triggers decides whether a calendar event fires a trigger and
// builds the data handed to the workflow when it does.
package triggers

import (
	"fmt"
	"log"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PrimaryCalendar matches every calendar when present in a trigger's scope
const PrimaryCalendar = "primary"

// compiled regex cache, keyed by the final expression
var regexCache sync.Map

func compileRegex(expr string) (*regexp.Regexp, error) {
	if re, ok := regexCache.Load(expr); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	regexCache.Store(expr, re)
	return re, nil
}

// RegexExpr returns the expression used for a regex rule value
func RegexExpr(value string, caseSensitive bool) string {
	if caseSensitive {
		return value
	}
	return "(?i)" + value
}

// ValidateRule checks that a rule can be evaluated
func ValidateRule(rule models.MatchRule) error {
	if !rule.Type.IsValid() {
		return fmt.Errorf("unknown match type %q", rule.Type)
	}
	if rule.Type == models.MatchRegex {
		if _, err := compileRegex(RegexExpr(rule.Value, rule.CaseSensitive)); err != nil {
			return fmt.Errorf("invalid regex %q: %w", rule.Value, err)
		}
	}
	return nil
}

// Evaluate reports whether event fires trigger at time now.
// Failures inside evaluation are logged and count as no match.
func Evaluate(trigger *models.CalendarTrigger, event *models.CalendarEvent, now time.Time) (matched bool) {
	if trigger == nil || event == nil {
		return false
	}
	triggerID, eventID := trigger.ID, event.ID
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[TriggerEvaluator] Trigger %d panicked on event %s: %v", triggerID, eventID, r)
			matched = false
		}
	}()

	if !InScope(trigger, event) {
		return false
	}

	switch trigger.TriggerType {
	case models.TriggerEventCreated, models.TriggerEventUpdated, models.TriggerReminderTime:
		return MatchesContentRules(trigger, event)
	case models.TriggerEventStartsSoon:
		// the start window is checked by the sync pipeline before this call
		return MatchesContentRules(trigger, event)
	case models.TriggerEventEnds:
		minutes := MinutesSinceEnd(event, now)
		return minutes >= 0 && minutes <= trigger.EndWindow()
	default:
		return false
	}
}

// InScope applies the trigger's calendar filter
func InScope(trigger *models.CalendarTrigger, event *models.CalendarEvent) bool {
	if len(trigger.Calendars) == 0 {
		return true
	}
	for _, id := range trigger.Calendars {
		if id == event.CalendarID || id == PrimaryCalendar {
			return true
		}
	}
	return false
}

// MatchesContentRules requires every non-empty rule list to have at least one matching rule
func MatchesContentRules(trigger *models.CalendarTrigger, event *models.CalendarEvent) bool {
	categories := []struct {
		rules []models.MatchRule
		text  string
	}{
		{trigger.TitleRules, event.Title},
		{trigger.DescriptionRules, event.Description},
		{trigger.LocationRules, event.Location},
		{trigger.AttendeeRules, AttendeesText(event.Attendees)},
	}

	for _, c := range categories {
		if len(c.rules) == 0 {
			continue
		}
		if !matchesAny(c.rules, c.text) {
			return false
		}
	}
	return true
}

func matchesAny(rules []models.MatchRule, text string) bool {
	for _, rule := range rules {
		if MatchRule(rule, text) {
			return true
		}
	}
	return false
}

// MatchRule evaluates a single rule against text
func MatchRule(rule models.MatchRule, text string) bool {
	value := rule.Value
	folded := text
	if !rule.CaseSensitive {
		lower := cases.Lower(language.Und)
		value = lower.String(value)
		folded = lower.String(text)
	}

	switch rule.Type {
	case models.MatchContains:
		return strings.Contains(folded, value)
	case models.MatchEquals:
		return folded == value
	case models.MatchStartsWith:
		return strings.HasPrefix(folded, value)
	case models.MatchEndsWith:
		return strings.HasSuffix(folded, value)
	case models.MatchNotContains:
		return !strings.Contains(folded, value)
	case models.MatchRegex:
		re, err := compileRegex(RegexExpr(rule.Value, rule.CaseSensitive))
		if err != nil {
			log.Printf("[TriggerEvaluator] Invalid regex %q: %v", rule.Value, err)
			return false
		}
		return re.MatchString(text)
	default:
		return false
	}
}

// AttendeesText renders attendees as "email displayName" joined by spaces
func AttendeesText(attendees []models.Attendee) string {
	parts := make([]string, 0, len(attendees))
	for _, a := range attendees {
		parts = append(parts, strings.TrimSpace(a.Email+" "+a.DisplayName))
	}
	return strings.Join(parts, " ")
}

// wholeMinutes floors d to whole minutes
func wholeMinutes(d time.Duration) int {
	return int(math.Floor(d.Minutes()))
}

// MinutesUntilStart is floor((start - now) / 1m)
func MinutesUntilStart(event *models.CalendarEvent, now time.Time) int {
	return wholeMinutes(event.StartTime.Sub(now))
}

// MinutesSinceEnd is floor((now - end) / 1m)
func MinutesSinceEnd(event *models.CalendarEvent, now time.Time) int {
	return wholeMinutes(now.Sub(event.EndTime))
}

// IsStartingSoon reports whether event starts within the trigger's reminder window.
// An event that already started is never starting soon.
func IsStartingSoon(trigger *models.CalendarTrigger, event *models.CalendarEvent, now time.Time) bool {
	minutes := MinutesUntilStart(event, now)
	return minutes > 0 && minutes <= trigger.StartWindow()
}

// FireKey identifies one firing of trigger for event.
// Event updates and start times are part of the key for the trigger types that can legitimately refire.
func FireKey(trigger *models.CalendarTrigger, event *models.CalendarEvent) string {
	key := fmt.Sprintf("%d:%s", trigger.ID, event.ID)
	switch trigger.TriggerType {
	case models.TriggerEventUpdated:
		key += ":" + event.Updated.UTC().Format(time.RFC3339)
	case models.TriggerEventStartsSoon, models.TriggerReminderTime:
		key += ":" + event.StartTime.UTC().Format(time.RFC3339)
	}
	return key
}
