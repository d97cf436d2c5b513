package providers

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
)

// DecodeICS parses an iCalendar stream and returns the events that overlap window
func DecodeICS(r io.Reader, calendarID, calendarName string, window FetchWindow) ([]models.CalendarEvent, error) {
	decoder := ical.NewDecoder(r)
	var events []models.CalendarEvent
	for {
		cal, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}
		events = append(events, EventsFromCalendar(cal, calendarID, calendarName, window)...)
	}
	return events, nil
}

// EventsFromCalendar converts the VEVENTs of cal, expanding recurring events inside window
func EventsFromCalendar(cal *ical.Calendar, calendarID, calendarName string, window FetchWindow) []models.CalendarEvent {
	var events []models.CalendarEvent
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}

		event, err := parseComponent(comp)
		if err != nil {
			log.Printf("[ICS] Skipping event in %s: %v", calendarID, err)
			continue
		}
		event.CalendarID = calendarID
		event.CalendarName = calendarName

		if event.IsRecurring {
			events = append(events, expandRecurring(event, window)...)
			continue
		}
		if window.Contains(event.StartTime, event.EndTime) {
			events = append(events, event)
		}
	}
	return events
}

func parseComponent(comp *ical.Component) (models.CalendarEvent, error) {
	event := models.CalendarEvent{
		ID:          textProp(comp, ical.PropUID),
		Title:       textProp(comp, ical.PropSummary),
		Description: textProp(comp, ical.PropDescription),
		Location:    textProp(comp, ical.PropLocation),
		Status:      models.EventStatusConfirmed,
	}

	start := comp.Props.Get(ical.PropDateTimeStart)
	if start == nil {
		return event, fmt.Errorf("event %q has no DTSTART", event.ID)
	}
	t, err := start.DateTime(time.UTC)
	if err != nil {
		return event, fmt.Errorf("event %q: invalid DTSTART: %w", event.ID, err)
	}
	event.StartTime = t
	event.IsAllDay = start.ValueType() == ical.ValueDate

	event.EndTime = event.StartTime
	if end := comp.Props.Get(ical.PropDateTimeEnd); end != nil {
		if t, err := end.DateTime(time.UTC); err == nil {
			event.EndTime = t
		}
	} else if dur := comp.Props.Get(ical.PropDuration); dur != nil {
		if d, err := dur.Duration(); err == nil {
			event.EndTime = event.StartTime.Add(d)
		}
	} else if event.IsAllDay {
		event.EndTime = event.StartTime.AddDate(0, 0, 1)
	}

	switch strings.ToUpper(textProp(comp, ical.PropStatus)) {
	case "TENTATIVE":
		event.Status = models.EventStatusTentative
	case "CANCELLED":
		event.Status = models.EventStatusCancelled
	}
	event.Visibility = strings.ToLower(textProp(comp, ical.PropClass))

	if rr := comp.Props.Get(ical.PropRecurrenceRule); rr != nil {
		event.IsRecurring = true
		event.RecurrenceRule = rr.Value
	}

	for _, prop := range comp.Props.Values(ical.PropAttendee) {
		event.Attendees = append(event.Attendees, models.Attendee{
			Email:          mailto(prop.Value),
			DisplayName:    prop.Params.Get(ical.ParamCommonName),
			ResponseStatus: strings.ToLower(prop.Params.Get(ical.ParamParticipationStatus)),
			Optional:       strings.EqualFold(prop.Params.Get(ical.ParamRole), "OPT-PARTICIPANT"),
		})
	}
	if org := comp.Props.Get(ical.PropOrganizer); org != nil {
		event.Organizer = &models.Organizer{
			Email:       mailto(org.Value),
			DisplayName: org.Params.Get(ical.ParamCommonName),
		}
	}

	if p := comp.Props.Get(ical.PropCreated); p != nil {
		if t, err := p.DateTime(time.UTC); err == nil {
			event.Created = t
		}
	}
	if p := comp.Props.Get(ical.PropLastModified); p != nil {
		if t, err := p.DateTime(time.UTC); err == nil {
			event.Updated = t
		}
	}
	if event.Updated.IsZero() {
		event.Updated = event.Created
	}

	return event, nil
}

// expandRecurring returns one event per occurrence inside window.
// Occurrence ids are the series id suffixed with the occurrence start.
func expandRecurring(base models.CalendarEvent, window FetchWindow) []models.CalendarEvent {
	opt, err := rrule.StrToROption(base.RecurrenceRule)
	if err != nil {
		log.Printf("[ICS] Invalid RRULE %q on %s: %v", base.RecurrenceRule, base.ID, err)
		return nil
	}
	opt.Dtstart = base.StartTime
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		log.Printf("[ICS] Invalid RRULE %q on %s: %v", base.RecurrenceRule, base.ID, err)
		return nil
	}

	duration := base.EndTime.Sub(base.StartTime)
	// occurrences that started before the window may still be running inside it
	var events []models.CalendarEvent
	for _, start := range rule.Between(window.Start.Add(-duration), window.End, true) {
		instance := base
		instance.ID = base.ID + "-" + start.UTC().Format("20060102T150405Z")
		instance.StartTime = start
		instance.EndTime = start.Add(duration)
		if window.Contains(instance.StartTime, instance.EndTime) {
			events = append(events, instance)
		}
	}
	return events
}

func textProp(comp *ical.Component, name string) string {
	prop := comp.Props.Get(name)
	if prop == nil {
		return ""
	}
	if text, err := prop.Text(); err == nil {
		return text
	}
	return prop.Value
}

func mailto(value string) string {
	if len(value) >= 7 && strings.EqualFold(value[:7], "mailto:") {
		return value[7:]
	}
	return value
}
