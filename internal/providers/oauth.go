package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"golang.org/x/oauth2"
)

// ErrOAuthNotConfigured indicates the provider has no OAuth client configured
var ErrOAuthNotConfigured = errors.New("oauth client not configured")

// OAuthConnector runs the authorization code flow that connects a new account
type OAuthConnector interface {
	Configured() bool
	AuthCodeURL(state, redirectURL string) string
	Exchange(ctx context.Context, code, redirectURL string) (models.Credentials, error)
	// AccountEmail identifies the mailbox the credentials belong to
	AccountEmail(ctx context.Context, creds models.Credentials) (string, error)
}

// Connector returns the OAuth connector of a provider, if it has one
func (r *Registry) Connector(name models.CalendarProvider) (OAuthConnector, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	connector, ok := p.(OAuthConnector)
	if !ok || !connector.Configured() {
		return nil, fmt.Errorf("%w: %s", ErrOAuthNotConfigured, name)
	}
	return connector, nil
}

func withRedirect(config *oauth2.Config, redirectURL string) *oauth2.Config {
	c := *config
	c.RedirectURL = redirectURL
	return &c
}

func authCodeURL(config *oauth2.Config, state, redirectURL string) string {
	return withRedirect(config, redirectURL).AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func exchangeCode(ctx context.Context, config *oauth2.Config, code, redirectURL string) (models.Credentials, error) {
	token, err := withRedirect(config, redirectURL).Exchange(ctx, code)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("exchange code: %w", err)
	}
	return models.Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}, nil
}

func (p *GoogleProvider) Configured() bool {
	return p.config.ClientID != "" && p.config.ClientSecret != ""
}

func (p *GoogleProvider) AuthCodeURL(state, redirectURL string) string {
	return authCodeURL(p.config, state, redirectURL)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code, redirectURL string) (models.Credentials, error) {
	return exchangeCode(ctx, p.config, code, redirectURL)
}

// AccountEmail returns the id of the primary calendar, which is the account address
func (p *GoogleProvider) AccountEmail(ctx context.Context, creds models.Credentials) (string, error) {
	svc, err := p.service(ctx, creds)
	if err != nil {
		return "", err
	}
	cal, err := svc.Calendars.Get(PrimaryCalendarID).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return cal.Id, nil
}

func (p *OutlookProvider) Configured() bool {
	return p.config.ClientID != "" && p.config.ClientSecret != ""
}

func (p *OutlookProvider) AuthCodeURL(state, redirectURL string) string {
	return authCodeURL(p.config, state, redirectURL)
}

func (p *OutlookProvider) Exchange(ctx context.Context, code, redirectURL string) (models.Credentials, error) {
	return exchangeCode(ctx, p.config, code, redirectURL)
}

// AccountEmail returns mail, or userPrincipalName for accounts without a mailbox address
func (p *OutlookProvider) AccountEmail(ctx context.Context, creds models.Credentials) (string, error) {
	client, err := p.client(ctx, creds)
	if err != nil {
		return "", err
	}
	var me struct {
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := p.get(ctx, client, p.BaseURL+"/me", &me); err != nil {
		return "", err
	}
	if me.Mail != "" {
		return me.Mail, nil
	}
	return me.UserPrincipalName, nil
}
