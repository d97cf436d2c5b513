package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"gorm.io/datatypes"
)

type stubProvider struct {
	name   models.CalendarProvider
	events []models.CalendarEvent
	err    error
	window FetchWindow
}

func (s *stubProvider) Name() models.CalendarProvider { return s.name }

func (s *stubProvider) TestConnection(context.Context, *models.CalendarAccount, models.Credentials) TestResult {
	if s.err != nil {
		return TestResult{Success: false, Message: s.err.Error()}
	}
	return TestResult{Success: true, Message: "ok"}
}

func (s *stubProvider) FetchEvents(_ context.Context, _ *models.CalendarAccount, _ models.Credentials, w FetchWindow) ([]models.CalendarEvent, error) {
	s.window = w
	return s.events, s.err
}

func TestRegistry_FetchEventsEnforcesMaxEvents(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	stub := &stubProvider{name: models.ProviderCalDAV}
	for i := 5; i > 0; i-- {
		stub.events = append(stub.events, models.CalendarEvent{ID: string(rune('a' + i)), StartTime: now.Add(time.Duration(i) * time.Hour)})
	}
	registry := NewRegistry(stub)

	account := &models.CalendarAccount{
		Provider:     models.ProviderCalDAV,
		SyncSettings: datatypes.NewJSONType(models.SyncSettings{SyncPastDays: 2, SyncFutureDays: 7, MaxEventsPerSync: 3}),
	}
	events, err := registry.FetchEvents(context.Background(), account, models.Credentials{}, now)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, now.Add(time.Hour), events[0].StartTime, "events are ordered by start")
	assert.Equal(t, now.AddDate(0, 0, -2), stub.window.Start)
	assert.Equal(t, now.AddDate(0, 0, 7), stub.window.End)
}

func TestRegistry_UnknownProvider(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.FetchEvents(context.Background(), &models.CalendarAccount{Provider: models.ProviderGoogle}, models.Credentials{}, time.Now())
	assert.True(t, errors.Is(err, ErrUnsupportedProvider))

	result := registry.TestConnection(context.Background(), &models.CalendarAccount{Provider: "exchange"}, models.Credentials{})
	assert.False(t, result.Success)

	registry.Register(&stubProvider{name: models.ProviderCalDAV})
	_, err = registry.Refresher(models.ProviderCalDAV)
	assert.True(t, errors.Is(err, ErrNotRefreshable))
}

func TestWindowForDefaults(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	w := WindowFor(models.SyncSettings{}, now)
	assert.Equal(t, now.AddDate(0, 0, -models.DefaultSyncPastDays), w.Start)
	assert.Equal(t, now.AddDate(0, 0, models.DefaultSyncFutureDays), w.End)
	assert.Equal(t, models.DefaultMaxEventsPerSync, w.MaxEvents)
}

func TestOutlookProvider_FetchEvents(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/me/calendarView" && r.URL.Query().Get("page") == "":
			assert.NotEmpty(t, r.URL.Query().Get("startDateTime"))
			json.NewEncoder(w).Encode(map[string]any{
				"value": []map[string]any{{
					"id":       "AAA",
					"subject":  "Planning",
					"body":     map[string]any{"content": "Quarterly planning"},
					"start":    map[string]any{"dateTime": "2025-03-10T10:00:00.0000000", "timeZone": "UTC"},
					"end":      map[string]any{"dateTime": "2025-03-10T11:00:00.0000000", "timeZone": "UTC"},
					"location": map[string]any{"displayName": "HQ"},
					"attendees": []map[string]any{{
						"emailAddress": map[string]any{"address": "ana@acme.com", "name": "Ana"},
						"status":       map[string]any{"response": "accepted"},
						"type":         "optional",
					}},
					"organizer":            map[string]any{"emailAddress": map[string]any{"address": "boss@acme.com", "name": "Boss"}},
					"seriesMasterId":       "SERIES",
					"type":                 "occurrence",
					"lastModifiedDateTime": "2025-03-01T08:00:00Z",
				}},
				"@odata.nextLink": srv.URL + "/me/calendarView?page=2",
			})
		case r.URL.Path == "/me/calendarView":
			json.NewEncoder(w).Encode(map[string]any{
				"value": []map[string]any{{
					"id":          "BBB",
					"subject":     "Cancelled sync",
					"isCancelled": true,
					"start":       map[string]any{"dateTime": "2025-03-11T10:00:00", "timeZone": "UTC"},
					"end":         map[string]any{"dateTime": "2025-03-11T10:30:00", "timeZone": "UTC"},
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewOutlookProvider("client", "secret", "")
	p.BaseURL = srv.URL

	creds := models.Credentials{AccessToken: "token-1", Expiry: time.Now().Add(time.Hour)}
	events, err := p.FetchEvents(context.Background(), &models.CalendarAccount{}, creds, testWindow())
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "AAA", first.ID)
	assert.Equal(t, "Planning", first.Title)
	assert.Equal(t, "Quarterly planning", first.Description)
	assert.Equal(t, "HQ", first.Location)
	assert.Equal(t, time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC), first.StartTime)
	assert.True(t, first.IsRecurring)
	assert.True(t, first.Attendees[0].Optional)
	assert.Equal(t, "boss@acme.com", first.Organizer.Email)
	assert.Equal(t, "primary", first.CalendarID)

	assert.Equal(t, models.EventStatusCancelled, events[1].Status)
}

func TestOutlookProvider_TestConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"InvalidAuthenticationToken"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewOutlookProvider("client", "secret", "")
	p.BaseURL = srv.URL

	result := p.TestConnection(context.Background(), &models.CalendarAccount{}, models.Credentials{AccessToken: "x", Expiry: time.Now().Add(time.Hour)})
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "401")

	result = p.TestConnection(context.Background(), &models.CalendarAccount{}, models.Credentials{})
	assert.False(t, result.Success)
}

func TestCalDAVProvider_RequiresServerAndPassword(t *testing.T) {
	p := NewCalDAVProvider()
	result := p.TestConnection(context.Background(), &models.CalendarAccount{Email: "a@b.com"}, models.Credentials{Password: "x"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, ErrMissingServerURL.Error())

	apple := NewAppleProvider("")
	assert.Equal(t, models.ProviderApple, apple.Name())
	_, err := apple.FetchEvents(context.Background(), &models.CalendarAccount{Email: "a@icloud.com"}, models.Credentials{}, testWindow())
	assert.True(t, errors.Is(err, ErrMissingCredentials))
}

func TestOutlookProvider_AccountEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"mail": "", "userPrincipalName": "ana@contoso.onmicrosoft.com"})
	}))
	defer srv.Close()

	p := NewOutlookProvider("client", "secret", "")
	p.BaseURL = srv.URL
	email, err := p.AccountEmail(context.Background(), models.Credentials{AccessToken: "t", Expiry: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "ana@contoso.onmicrosoft.com", email)
}

func TestRegistry_Connector(t *testing.T) {
	registry := NewRegistry(NewGoogleProvider("", ""), NewOutlookProvider("id", "secret", ""), NewCalDAVProvider())

	_, err := registry.Connector(models.ProviderGoogle)
	assert.True(t, errors.Is(err, ErrOAuthNotConfigured))
	_, err = registry.Connector(models.ProviderCalDAV)
	assert.True(t, errors.Is(err, ErrOAuthNotConfigured))

	connector, err := registry.Connector(models.ProviderOutlook)
	require.NoError(t, err)
	url := connector.AuthCodeURL("state-1", "https://nexus.example.com/api/oauth/outlook/callback")
	assert.Contains(t, url, "state=state-1")
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "redirect_uri=https%3A%2F%2Fnexus.example.com")
}
