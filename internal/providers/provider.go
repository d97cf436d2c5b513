// Package providers fetches calendar events from external calendar services
// and normalizes them into models.CalendarEvent.
package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported calendar provider")
	ErrMissingCredentials  = errors.New("missing credentials for provider")
	ErrNotRefreshable      = errors.New("provider does not support token refresh")
)

// TestResult is the outcome of a connection test
type TestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// FetchWindow bounds the events requested from a provider
type FetchWindow struct {
	Start       time.Time
	End         time.Time
	CalendarIDs []string
	MaxEvents   int
}

// Contains reports whether an event overlaps the window
func (w FetchWindow) Contains(start, end time.Time) bool {
	if end.IsZero() {
		end = start
	}
	return !end.Before(w.Start) && start.Before(w.End)
}

// WindowFor builds the fetch window for an account at time now
func WindowFor(settings models.SyncSettings, now time.Time) FetchWindow {
	s := settings.WithDefaults()
	return FetchWindow{
		Start:       now.AddDate(0, 0, -s.SyncPastDays),
		End:         now.AddDate(0, 0, s.SyncFutureDays),
		CalendarIDs: s.CalendarIDs,
		MaxEvents:   s.MaxEventsPerSync,
	}
}

// Provider is the capability every calendar service adapter implements
type Provider interface {
	Name() models.CalendarProvider
	TestConnection(ctx context.Context, account *models.CalendarAccount, creds models.Credentials) TestResult
	FetchEvents(ctx context.Context, account *models.CalendarAccount, creds models.Credentials, window FetchWindow) ([]models.CalendarEvent, error)
}

// PrimaryCalendarID selects the account's default calendar
const PrimaryCalendarID = "primary"

// TokenRefresher is implemented by OAuth providers
type TokenRefresher interface {
	RefreshToken(ctx context.Context, creds models.Credentials) (models.Credentials, error)
}

// Registry resolves the provider of an account
type Registry struct {
	providers map[models.CalendarProvider]Provider
}

// NewRegistry creates a registry holding the given providers
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[models.CalendarProvider]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get returns the provider registered under name
func (r *Registry) Get(name models.CalendarProvider) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}
	return p, nil
}

// TestConnection tests an account against its provider
func (r *Registry) TestConnection(ctx context.Context, account *models.CalendarAccount, creds models.Credentials) TestResult {
	p, err := r.Get(account.Provider)
	if err != nil {
		return TestResult{Success: false, Message: err.Error()}
	}
	return p.TestConnection(ctx, account, creds)
}

// FetchEvents pulls the account's events in its sync window, ordered by start
// time and truncated to max_events_per_sync.
func (r *Registry) FetchEvents(ctx context.Context, account *models.CalendarAccount, creds models.Credentials, now time.Time) ([]models.CalendarEvent, error) {
	p, err := r.Get(account.Provider)
	if err != nil {
		return nil, err
	}

	window := WindowFor(account.SyncSettings.Data(), now)
	events, err := p.FetchEvents(ctx, account, creds, window)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", account.Provider, err)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
	if window.MaxEvents > 0 && len(events) > window.MaxEvents {
		events = events[:window.MaxEvents]
	}
	return events, nil
}

// Refresher returns the token refresher of a provider, if it has one
func (r *Registry) Refresher(name models.CalendarProvider) (TokenRefresher, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	refresher, ok := p.(TokenRefresher)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRefreshable, name)
	}
	return refresher, nil
}
