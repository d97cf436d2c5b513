package models

import (
	"time"

	"gorm.io/datatypes"
)

// CalendarProvider identifies the external calendar service behind an account
type CalendarProvider string

const (
	ProviderGoogle  CalendarProvider = "google"
	ProviderOutlook CalendarProvider = "outlook"
	ProviderApple   CalendarProvider = "apple"
	ProviderCalDAV  CalendarProvider = "caldav"
)

// IsValid checks if the provider is one of the supported providers
func (p CalendarProvider) IsValid() bool {
	switch p {
	case ProviderGoogle, ProviderOutlook, ProviderApple, ProviderCalDAV:
		return true
	}
	return false
}

// UsesOAuth reports whether the provider authenticates with OAuth2 tokens
func (p CalendarProvider) UsesOAuth() bool {
	return p == ProviderGoogle || p == ProviderOutlook
}

// Sync window defaults
const (
	DefaultSyncPastDays     = 1
	DefaultSyncFutureDays   = 30
	DefaultMaxEventsPerSync = 250
)

// SyncSettings controls which events are pulled from the provider
type SyncSettings struct {
	SyncPastDays     int      `json:"sync_past_days"`
	SyncFutureDays   int      `json:"sync_future_days"`
	MaxEventsPerSync int      `json:"max_events_per_sync"`
	CalendarIDs      []string `json:"calendar_ids,omitempty"` // empty means the provider's primary calendar
}

// WithDefaults fills zero values with the package defaults
func (s SyncSettings) WithDefaults() SyncSettings {
	if s.SyncPastDays <= 0 {
		s.SyncPastDays = DefaultSyncPastDays
	}
	if s.SyncFutureDays <= 0 {
		s.SyncFutureDays = DefaultSyncFutureDays
	}
	if s.MaxEventsPerSync <= 0 {
		s.MaxEventsPerSync = DefaultMaxEventsPerSync
	}
	return s
}

// Credentials is the plaintext secret material of an account.
// It is only ever persisted sealed, see CalendarAccount.CredentialsEncrypted.
type Credentials struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Password     string    `json:"password,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// CalendarAccount represents one connected external calendar
type CalendarAccount struct {
	ID                   uint                             `gorm:"primaryKey" json:"id"`
	TenantID             string                           `gorm:"size:64;index;not null" json:"tenant_id"`
	UserID               uint                             `gorm:"index;not null" json:"user_id"`
	Email                string                           `gorm:"size:255;not null" json:"email"`
	DisplayName          string                           `gorm:"size:100" json:"display_name"`
	Provider             CalendarProvider                 `gorm:"size:20;index;not null" json:"provider"`
	ServerURL            string                           `gorm:"size:500" json:"server_url"` // CalDAV endpoint
	Username             string                           `gorm:"size:255" json:"username"`
	CredentialsEncrypted string                           `gorm:"type:text;not null" json:"-"`
	TokenExpiry          *time.Time                       `json:"token_expiry,omitempty"`
	SyncSettings         datatypes.JSONType[SyncSettings] `json:"sync_settings"`
	IsActive             bool                             `gorm:"default:true;index" json:"is_active"`
	LastSyncAt           *time.Time                       `json:"last_sync_at,omitempty"`
	LastError            string                           `gorm:"type:text" json:"last_error"`
	CreatedAt            time.Time                        `json:"created_at"`
	UpdatedAt            time.Time                        `json:"updated_at"`
}
