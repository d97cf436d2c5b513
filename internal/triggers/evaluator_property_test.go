package triggers

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
)

// Property: rule lists combine with AND across categories and OR within a category.
func TestProperty_RuleListsAndAcrossOrWithin(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("match_equals_or_within_and_across", prop.ForAll(
		func(title, description string, a, b, c string) bool {
			trigger := newTrigger(models.TriggerEventCreated)
			trigger.TitleRules = []models.MatchRule{contains(a), contains(b)}
			trigger.DescriptionRules = []models.MatchRule{contains(c)}

			event := newEvent()
			event.Title = title
			event.Description = description

			want := (MatchRule(contains(a), title) || MatchRule(contains(b), title)) &&
				MatchRule(contains(c), description)
			return Evaluate(trigger, event, baseTime) == want
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.OneConstOf("Weekly", "Sync", "x", "standup"),
		gen.OneConstOf("Review", "a", "planning"),
		gen.OneConstOf("notes", "e", "agenda"),
	))

	properties.TestingRun(t)
}

// Property: a trigger with no rules matches every in-scope event.
func TestProperty_EmptyRulesAreVacuouslyTrue(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("empty_rules_match_any_event", prop.ForAll(
		func(title, description, location, calendarID string) bool {
			event := newEvent()
			event.Title = title
			event.Description = description
			event.Location = location
			event.CalendarID = calendarID
			return Evaluate(newTrigger(models.TriggerEventUpdated), event, baseTime)
		},
		gen.AnyString(),
		gen.AnyString(),
		gen.AnyString(),
		gen.AlphaString(),
	))

	properties.Property("scope_without_primary_rejects_other_calendars", prop.ForAll(
		func(calendarID string) bool {
			trigger := newTrigger(models.TriggerEventCreated)
			trigger.Calendars = []string{"only-this-one"}
			event := newEvent()
			event.CalendarID = calendarID
			return Evaluate(trigger, event, baseTime) == (calendarID == "only-this-one")
		},
		gen.OneConstOf("only-this-one", "work", "personal", ""),
	))

	properties.TestingRun(t)
}

// Property: case-insensitive contains agrees with a lower-cased comparison.
func TestProperty_CaseFolding(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("folded_contains_ignores_case", prop.ForAll(
		func(text, value string) bool {
			upper := strings.ToUpper(text)
			rule := contains(strings.ToLower(value))
			return MatchRule(rule, upper) == strings.Contains(strings.ToLower(text), strings.ToLower(value))
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("not_contains_negates_contains", prop.ForAll(
		func(text, value string, caseSensitive bool) bool {
			c := models.MatchRule{Type: models.MatchContains, Value: value, CaseSensitive: caseSensitive}
			n := models.MatchRule{Type: models.MatchNotContains, Value: value, CaseSensitive: caseSensitive}
			return MatchRule(c, text) != MatchRule(n, text)
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// Property: time windows are inclusive of the configured minutes and exclusive of zero for starts.
func TestProperty_TimeWindows(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("event_ends_within_window", prop.ForAll(
		func(window, offset int) bool {
			trigger := newTrigger(models.TriggerEventEnds)
			trigger.MinutesAfterEnd = intPtr(window)
			event := newEvent()
			now := event.EndTime.Add(time.Duration(offset) * time.Minute)
			return Evaluate(trigger, event, now) == (offset >= 0 && offset <= window)
		},
		gen.IntRange(0, 120),
		gen.IntRange(-60, 180),
	))

	properties.Property("starts_soon_within_window", prop.ForAll(
		func(window, minutesBefore int) bool {
			trigger := newTrigger(models.TriggerEventStartsSoon)
			trigger.MinutesBeforeStart = intPtr(window)
			event := newEvent()
			now := event.StartTime.Add(-time.Duration(minutesBefore) * time.Minute)
			return IsStartingSoon(trigger, event, now) == (minutesBefore > 0 && minutesBefore <= window)
		},
		gen.IntRange(0, 120),
		gen.IntRange(-60, 180),
	))

	properties.TestingRun(t)
}
