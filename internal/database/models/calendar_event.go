package models

import (
	"time"
)

// EventStatus is the confirmation state of a calendar event
type EventStatus string

const (
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusTentative EventStatus = "tentative"
	EventStatusCancelled EventStatus = "cancelled"
)

// Attendee is a participant of a calendar event
type Attendee struct {
	Email          string `json:"email"`
	DisplayName    string `json:"display_name,omitempty"`
	ResponseStatus string `json:"response_status,omitempty"`
	Optional       bool   `json:"optional,omitempty"`
}

// Organizer is the owner of a calendar event
type Organizer struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// CalendarEvent is a provider-neutral event fetched during a sync cycle.
// It is not a table: events only survive as snapshots in audit rows.
type CalendarEvent struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	StartTime      time.Time   `json:"start_time"`
	EndTime        time.Time   `json:"end_time"`
	Location       string      `json:"location"`
	Attendees      []Attendee  `json:"attendees,omitempty"`
	Organizer      *Organizer  `json:"organizer,omitempty"`
	IsAllDay       bool        `json:"is_all_day"`
	IsRecurring    bool        `json:"is_recurring"`
	RecurrenceRule string      `json:"recurrence_rule,omitempty"`
	Status         EventStatus `json:"status"`
	Visibility     string      `json:"visibility,omitempty"`
	CalendarID     string      `json:"calendar_id"`
	CalendarName   string      `json:"calendar_name,omitempty"`
	Created        time.Time   `json:"created"`
	Updated        time.Time   `json:"updated"`
}
