package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// DefaultGraphURL is the Microsoft Graph v1.0 endpoint
const DefaultGraphURL = "https://graph.microsoft.com/v1.0"

const graphTimeLayout = "2006-01-02T15:04:05.9999999"

// OutlookProvider reads events through Microsoft Graph
type OutlookProvider struct {
	config  *oauth2.Config
	BaseURL string
}

// NewOutlookProvider creates an Outlook provider; tenant defaults to "common"
func NewOutlookProvider(clientID, clientSecret, tenant string) *OutlookProvider {
	if tenant == "" {
		tenant = "common"
	}
	return &OutlookProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{"offline_access", "Calendars.Read", "User.Read"},
			Endpoint:     microsoft.AzureADEndpoint(tenant),
		},
		BaseURL: DefaultGraphURL,
	}
}

func (p *OutlookProvider) Name() models.CalendarProvider { return models.ProviderOutlook }

func (p *OutlookProvider) client(ctx context.Context, creds models.Credentials) (*http.Client, error) {
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		return nil, ErrMissingCredentials
	}
	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       creds.Expiry,
	}
	return p.config.Client(ctx, token), nil
}

func (p *OutlookProvider) get(ctx context.Context, client *http.Client, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", `outlook.timezone="UTC"`)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("graph returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// TestConnection reads the signed-in user's profile
func (p *OutlookProvider) TestConnection(ctx context.Context, account *models.CalendarAccount, creds models.Credentials) TestResult {
	client, err := p.client(ctx, creds)
	if err != nil {
		return TestResult{Success: false, Message: err.Error()}
	}
	var me struct {
		DisplayName string `json:"displayName"`
		Mail        string `json:"mail"`
	}
	if err := p.get(ctx, client, p.BaseURL+"/me", &me); err != nil {
		return TestResult{Success: false, Message: fmt.Sprintf("Microsoft Graph request failed: %v", err)}
	}
	return TestResult{Success: true, Message: fmt.Sprintf("Connected as %s", me.DisplayName)}
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphEmail struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

type graphEvent struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Body    struct {
		Content string `json:"content"`
	} `json:"body"`
	BodyPreview string        `json:"bodyPreview"`
	Start       graphDateTime `json:"start"`
	End         graphDateTime `json:"end"`
	Location    struct {
		DisplayName string `json:"displayName"`
	} `json:"location"`
	Attendees []struct {
		EmailAddress graphEmail `json:"emailAddress"`
		Status       struct {
			Response string `json:"response"`
		} `json:"status"`
		Type string `json:"type"`
	} `json:"attendees"`
	Organizer *struct {
		EmailAddress graphEmail `json:"emailAddress"`
	} `json:"organizer"`
	IsAllDay             bool   `json:"isAllDay"`
	IsCancelled          bool   `json:"isCancelled"`
	ShowAs               string `json:"showAs"`
	Sensitivity          string `json:"sensitivity"`
	SeriesMasterID       string `json:"seriesMasterId"`
	Type                 string `json:"type"`
	CreatedDateTime      string `json:"createdDateTime"`
	LastModifiedDateTime string `json:"lastModifiedDateTime"`
}

type graphEventPage struct {
	Value    []graphEvent `json:"value"`
	NextLink string       `json:"@odata.nextLink"`
}

// FetchEvents reads the calendar view of each configured calendar, following pagination
func (p *OutlookProvider) FetchEvents(ctx context.Context, account *models.CalendarAccount, creds models.Credentials, window FetchWindow) ([]models.CalendarEvent, error) {
	client, err := p.client(ctx, creds)
	if err != nil {
		return nil, err
	}

	calendarIDs := window.CalendarIDs
	if len(calendarIDs) == 0 {
		calendarIDs = []string{PrimaryCalendarID}
	}

	query := url.Values{}
	query.Set("startDateTime", window.Start.UTC().Format(time.RFC3339))
	query.Set("endDateTime", window.End.UTC().Format(time.RFC3339))
	if window.MaxEvents > 0 {
		query.Set("$top", fmt.Sprint(window.MaxEvents))
	}

	var events []models.CalendarEvent
	for _, calendarID := range calendarIDs {
		next := p.BaseURL + "/me/calendarView?" + query.Encode()
		if calendarID != PrimaryCalendarID {
			next = p.BaseURL + "/me/calendars/" + url.PathEscape(calendarID) + "/calendarView?" + query.Encode()
		}

		for next != "" {
			var page graphEventPage
			if err := p.get(ctx, client, next, &page); err != nil {
				return nil, fmt.Errorf("calendar view of %s: %w", calendarID, err)
			}
			for _, item := range page.Value {
				events = append(events, convertGraphEvent(item, calendarID))
			}
			next = page.NextLink
			if window.MaxEvents > 0 && len(events) >= window.MaxEvents {
				break
			}
		}
	}
	return events, nil
}

// RefreshToken exchanges the refresh token for a new access token
func (p *OutlookProvider) RefreshToken(ctx context.Context, creds models.Credentials) (models.Credentials, error) {
	return refreshOAuth(ctx, p.config, creds)
}

func convertGraphEvent(item graphEvent, calendarID string) models.CalendarEvent {
	description := item.Body.Content
	if description == "" {
		description = item.BodyPreview
	}

	event := models.CalendarEvent{
		ID:          item.ID,
		Title:       item.Subject,
		Description: description,
		Location:    item.Location.DisplayName,
		IsAllDay:    item.IsAllDay,
		IsRecurring: item.SeriesMasterID != "" || item.Type == "occurrence" || item.Type == "seriesMaster",
		Status:      models.EventStatusConfirmed,
		Visibility:  item.Sensitivity,
		CalendarID:  calendarID,
		StartTime:   graphTime(item.Start),
		EndTime:     graphTime(item.End),
	}
	if item.IsCancelled {
		event.Status = models.EventStatusCancelled
	} else if item.ShowAs == "tentative" {
		event.Status = models.EventStatusTentative
	}

	for _, a := range item.Attendees {
		event.Attendees = append(event.Attendees, models.Attendee{
			Email:          a.EmailAddress.Address,
			DisplayName:    a.EmailAddress.Name,
			ResponseStatus: a.Status.Response,
			Optional:       a.Type == "optional",
		})
	}
	if item.Organizer != nil {
		event.Organizer = &models.Organizer{
			Email:       item.Organizer.EmailAddress.Address,
			DisplayName: item.Organizer.EmailAddress.Name,
		}
	}

	event.Created, _ = time.Parse(time.RFC3339Nano, item.CreatedDateTime)
	event.Updated, _ = time.Parse(time.RFC3339Nano, item.LastModifiedDateTime)
	return event
}

// graphTime parses a Graph dateTime in its declared zone
func graphTime(dt graphDateTime) time.Time {
	loc := time.UTC
	if dt.TimeZone != "" && dt.TimeZone != "UTC" {
		if l, err := time.LoadLocation(dt.TimeZone); err == nil {
			loc = l
		}
	}
	t, err := time.ParseInLocation(graphTimeLayout, dt.DateTime, loc)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
