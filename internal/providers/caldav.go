package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
)

// DefaultAppleCalDAVURL is the iCloud CalDAV endpoint
const DefaultAppleCalDAVURL = "https://caldav.icloud.com"

var ErrMissingServerURL = errors.New("caldav server url is required")

// CalDAVProvider reads events from a CalDAV server with basic auth.
// Apple iCloud accounts use the same adapter with a default endpoint.
type CalDAVProvider struct {
	name       models.CalendarProvider
	defaultURL string
	HTTPClient *http.Client
}

// NewCalDAVProvider creates a provider for generic CalDAV servers
func NewCalDAVProvider() *CalDAVProvider {
	return &CalDAVProvider{name: models.ProviderCalDAV, HTTPClient: http.DefaultClient}
}

// NewAppleProvider creates a provider for iCloud calendars (app-specific password)
func NewAppleProvider(serverURL string) *CalDAVProvider {
	if serverURL == "" {
		serverURL = DefaultAppleCalDAVURL
	}
	return &CalDAVProvider{name: models.ProviderApple, defaultURL: serverURL, HTTPClient: http.DefaultClient}
}

func (p *CalDAVProvider) Name() models.CalendarProvider { return p.name }

func (p *CalDAVProvider) client(account *models.CalendarAccount, creds models.Credentials) (*caldav.Client, error) {
	endpoint := account.ServerURL
	if endpoint == "" {
		endpoint = p.defaultURL
	}
	if endpoint == "" {
		return nil, ErrMissingServerURL
	}
	if creds.Password == "" {
		return nil, ErrMissingCredentials
	}
	username := account.Username
	if username == "" {
		username = account.Email
	}

	httpClient := webdav.HTTPClientWithBasicAuth(p.HTTPClient, username, creds.Password)
	return caldav.NewClient(httpClient, endpoint)
}

func (p *CalDAVProvider) calendars(ctx context.Context, client *caldav.Client) ([]caldav.Calendar, error) {
	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}
	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find calendar home set: %w", err)
	}
	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}
	return cals, nil
}

// TestConnection discovers the account's calendars
func (p *CalDAVProvider) TestConnection(ctx context.Context, account *models.CalendarAccount, creds models.Credentials) TestResult {
	client, err := p.client(account, creds)
	if err != nil {
		return TestResult{Success: false, Message: err.Error()}
	}
	cals, err := p.calendars(ctx, client)
	if err != nil {
		return TestResult{Success: false, Message: fmt.Sprintf("CalDAV discovery failed: %v", err)}
	}
	return TestResult{Success: true, Message: fmt.Sprintf("Found %d calendars", len(cals))}
}

// FetchEvents runs a calendar-query for VEVENTs in window on each selected calendar
func (p *CalDAVProvider) FetchEvents(ctx context.Context, account *models.CalendarAccount, creds models.Credentials, window FetchWindow) ([]models.CalendarEvent, error) {
	client, err := p.client(account, creds)
	if err != nil {
		return nil, err
	}
	cals, err := p.calendars(ctx, client)
	if err != nil {
		return nil, err
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  ical.CompCalendar,
			Props: []string{"VERSION"},
			Comps: []caldav.CalendarCompRequest{{
				Name:     ical.CompEvent,
				AllProps: true,
			}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: window.Start,
				End:   window.End,
			}},
		},
	}

	var events []models.CalendarEvent
	for _, cal := range cals {
		if !supportsEvents(cal) || !selected(cal, window.CalendarIDs) {
			continue
		}
		objects, err := client.QueryCalendar(ctx, cal.Path, query)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", cal.Path, err)
		}
		for _, obj := range objects {
			if obj.Data == nil {
				continue
			}
			events = append(events, EventsFromCalendar(obj.Data, cal.Path, cal.Name, window)...)
		}
	}
	return events, nil
}

func supportsEvents(cal caldav.Calendar) bool {
	if len(cal.SupportedComponentSet) == 0 {
		return true
	}
	for _, comp := range cal.SupportedComponentSet {
		if comp == ical.CompEvent {
			return true
		}
	}
	return false
}

// selected matches a calendar against configured ids by path, last path segment or name
func selected(cal caldav.Calendar, ids []string) bool {
	if len(ids) == 0 {
		return true
	}
	base := path.Base(strings.TrimSuffix(cal.Path, "/"))
	for _, id := range ids {
		if id == cal.Path || id == base || strings.EqualFold(id, cal.Name) {
			return true
		}
	}
	return false
}
