package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleProvider reads events through the Google Calendar API
type GoogleProvider struct {
	config *oauth2.Config
	// Endpoint overrides the API base URL
	Endpoint string
}

// NewGoogleProvider creates a Google Calendar provider for an OAuth client
func NewGoogleProvider(clientID, clientSecret string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		},
	}
}

func (p *GoogleProvider) Name() models.CalendarProvider { return models.ProviderGoogle }

func (p *GoogleProvider) service(ctx context.Context, creds models.Credentials) (*calendar.Service, error) {
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		return nil, ErrMissingCredentials
	}
	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       creds.Expiry,
	}
	opts := []option.ClientOption{option.WithTokenSource(p.config.TokenSource(ctx, token))}
	if p.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.Endpoint))
	}
	return calendar.NewService(ctx, opts...)
}

// TestConnection reads the primary calendar
func (p *GoogleProvider) TestConnection(ctx context.Context, account *models.CalendarAccount, creds models.Credentials) TestResult {
	svc, err := p.service(ctx, creds)
	if err != nil {
		return TestResult{Success: false, Message: err.Error()}
	}
	cal, err := svc.Calendars.Get(PrimaryCalendarID).Context(ctx).Do()
	if err != nil {
		return TestResult{Success: false, Message: fmt.Sprintf("Google Calendar request failed: %v", err)}
	}
	return TestResult{Success: true, Message: fmt.Sprintf("Connected to calendar %s", cal.Summary)}
}

// FetchEvents lists single (expanded) events of every configured calendar
func (p *GoogleProvider) FetchEvents(ctx context.Context, account *models.CalendarAccount, creds models.Credentials, window FetchWindow) ([]models.CalendarEvent, error) {
	svc, err := p.service(ctx, creds)
	if err != nil {
		return nil, err
	}

	calendarIDs := window.CalendarIDs
	if len(calendarIDs) == 0 {
		calendarIDs = []string{PrimaryCalendarID}
	}

	var events []models.CalendarEvent
	for _, calendarID := range calendarIDs {
		name := calendarID
		if cal, err := svc.Calendars.Get(calendarID).Context(ctx).Do(); err == nil {
			name = cal.Summary
		}

		pageToken := ""
		for {
			call := svc.Events.List(calendarID).
				TimeMin(window.Start.Format(time.RFC3339)).
				TimeMax(window.End.Format(time.RFC3339)).
				SingleEvents(true).
				OrderBy("startTime").
				ShowDeleted(false).
				Context(ctx)
			if window.MaxEvents > 0 {
				call = call.MaxResults(int64(window.MaxEvents))
			}
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}

			result, err := call.Do()
			if err != nil {
				return nil, fmt.Errorf("list events of %s: %w", calendarID, err)
			}
			for _, item := range result.Items {
				events = append(events, convertGoogleEvent(item, calendarID, name))
			}

			pageToken = result.NextPageToken
			if pageToken == "" || (window.MaxEvents > 0 && len(events) >= window.MaxEvents) {
				break
			}
		}
	}
	return events, nil
}

// RefreshToken exchanges the refresh token for a new access token
func (p *GoogleProvider) RefreshToken(ctx context.Context, creds models.Credentials) (models.Credentials, error) {
	return refreshOAuth(ctx, p.config, creds)
}

func convertGoogleEvent(item *calendar.Event, calendarID, calendarName string) models.CalendarEvent {
	event := models.CalendarEvent{
		ID:           item.Id,
		Title:        item.Summary,
		Description:  item.Description,
		Location:     item.Location,
		IsRecurring:  item.RecurringEventId != "" || len(item.Recurrence) > 0,
		Status:       models.EventStatus(item.Status),
		Visibility:   item.Visibility,
		CalendarID:   calendarID,
		CalendarName: calendarName,
	}
	if event.Status == "" {
		event.Status = models.EventStatusConfirmed
	}
	if len(item.Recurrence) > 0 {
		event.RecurrenceRule = item.Recurrence[0]
	}

	event.StartTime, event.IsAllDay = googleTime(item.Start)
	event.EndTime, _ = googleTime(item.End)

	for _, a := range item.Attendees {
		event.Attendees = append(event.Attendees, models.Attendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			ResponseStatus: a.ResponseStatus,
			Optional:       a.Optional,
		})
	}
	if item.Organizer != nil {
		event.Organizer = &models.Organizer{Email: item.Organizer.Email, DisplayName: item.Organizer.DisplayName}
	}

	event.Created, _ = time.Parse(time.RFC3339, item.Created)
	event.Updated, _ = time.Parse(time.RFC3339, item.Updated)
	return event
}

// googleTime reads a timed or all-day boundary
func googleTime(dt *calendar.EventDateTime) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	if dt.DateTime != "" {
		t, _ := time.Parse(time.RFC3339, dt.DateTime)
		return t, false
	}
	t, _ := time.Parse("2006-01-02", dt.Date)
	return t, true
}

func refreshOAuth(ctx context.Context, config *oauth2.Config, creds models.Credentials) (models.Credentials, error) {
	if creds.RefreshToken == "" {
		return creds, ErrMissingCredentials
	}
	// an expired token forces the source to use the refresh token
	src := config.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken, Expiry: time.Unix(1, 0)})
	token, err := src.Token()
	if err != nil {
		return creds, fmt.Errorf("refresh token: %w", err)
	}
	creds.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		creds.RefreshToken = token.RefreshToken
	}
	creds.Expiry = token.Expiry
	return creds, nil
}
