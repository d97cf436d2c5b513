package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/providers"
)

// Sealed credentials never contain the plaintext and open back to the same record.
func TestProperty_SealedCredentialsRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	service := NewAccountService(nil, testKey, providers.NewRegistry())
	secretGen := gen.SliceOfN(24, gen.AlphaNumChar()).Map(func(chars []rune) string {
		return string(chars)
	})

	properties.Property("sealed_credentials_hide_plaintext_and_round_trip", prop.ForAll(
		func(access, password string) bool {
			creds := models.Credentials{AccessToken: access, Password: password}
			sealed, err := service.SealCredentials(creds)
			if err != nil {
				return false
			}
			if strings.Contains(sealed, access) || strings.Contains(sealed, password) {
				return false
			}
			opened, err := service.Credentials(&models.CalendarAccount{CredentialsEncrypted: sealed})
			if err != nil {
				return false
			}
			return opened.AccessToken == access && opened.Password == password
		},
		secretGen,
		secretGen,
	))

	properties.Property("wrong_key_cannot_open", prop.ForAll(
		func(password string) bool {
			sealed, err := service.SealCredentials(models.Credentials{Password: password})
			if err != nil {
				return false
			}
			other := NewAccountService(nil, []byte("another-key"), providers.NewRegistry())
			_, err = other.Credentials(&models.CalendarAccount{CredentialsEncrypted: sealed})
			return errors.Is(err, ErrDecryptionFailed)
		},
		secretGen,
	))

	properties.TestingRun(t)
}

func TestConnectAccount_Validation(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	cases := []struct {
		name  string
		input ConnectAccountInput
	}{
		{"unknown provider", ConnectAccountInput{TenantID: testTenant, Email: "a@x.com", Provider: "exchange"}},
		{"oauth without token", ConnectAccountInput{TenantID: testTenant, Email: "a@x.com", Provider: models.ProviderGoogle}},
		{"caldav without server", ConnectAccountInput{TenantID: testTenant, Email: "a@x.com", Provider: models.ProviderCalDAV, Credentials: models.Credentials{Password: "p"}}},
		{"apple without password", ConnectAccountInput{TenantID: testTenant, Email: "a@icloud.com", Provider: models.ProviderApple}},
		{"negative window", ConnectAccountInput{TenantID: testTenant, Email: "a@x.com", Provider: models.ProviderGoogle,
			Credentials: models.Credentials{AccessToken: "t"}, SyncSettings: models.SyncSettings{SyncPastDays: -1}}},
		{"missing email", ConnectAccountInput{TenantID: testTenant, Provider: models.ProviderGoogle, Credentials: models.Credentials{AccessToken: "t"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.accounts.ConnectAccount(tc.input)
			assert.True(t, errors.Is(err, ErrInvalidAccountData), "got %v", err)
		})
	}
}

func TestConnectAccount_SealsAndDefaults(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	account := env.connect(t, "ops@acme.com")
	assert.True(t, account.IsActive)
	assert.NotContains(t, account.CredentialsEncrypted, "app-password")

	stored, err := env.accounts.GetAccount(testTenant, account.ID)
	require.NoError(t, err)
	settings := stored.SyncSettings.Data()
	assert.Equal(t, models.DefaultSyncFutureDays, settings.SyncFutureDays)
	assert.Equal(t, models.DefaultMaxEventsPerSync, settings.MaxEventsPerSync)

	creds, err := env.accounts.Credentials(stored)
	require.NoError(t, err)
	assert.Equal(t, "app-password", creds.Password)

	_, err = env.accounts.ConnectAccount(ConnectAccountInput{
		TenantID:    testTenant,
		Email:       "ops@acme.com",
		Provider:    models.ProviderCalDAV,
		ServerURL:   "https://dav.example.com",
		Credentials: models.Credentials{Password: "x"},
	})
	assert.True(t, errors.Is(err, ErrAccountAlreadyExists))

	_, err = env.accounts.GetAccount("other-tenant", account.ID)
	assert.True(t, errors.Is(err, ErrAccountNotFound))
}

func TestTestConnection_FailureDeactivates(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	good := env.connect(t, "good@acme.com")
	bad := env.connect(t, "bad@acme.com")
	env.provider.errs["bad@acme.com"] = errors.New("401 unauthorized")

	result, err := env.accounts.TestConnection(context.Background(), testTenant, good.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)

	result, err = env.accounts.TestConnection(context.Background(), testTenant, bad.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)

	stored, err := env.accounts.GetAccount(testTenant, bad.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Equal(t, "401 unauthorized", stored.LastError)

	stored, err = env.accounts.GetAccount(testTenant, good.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
}

func TestAccountSettingsAndStatus(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	account := env.connect(t, "ops@acme.com")

	updated, err := env.accounts.UpdateSyncSettings(testTenant, account.ID, models.SyncSettings{SyncFutureDays: 7, CalendarIDs: []string{"team"}})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.SyncSettings.Data().SyncFutureDays)

	_, err = env.accounts.DisableAccount(testTenant, account.ID)
	require.NoError(t, err)
	active, err := env.accounts.ListActiveAccounts(testTenant)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = env.accounts.EnableAccount(testTenant, account.ID)
	require.NoError(t, err)
	active, err = env.accounts.ListActiveAccounts("")
	require.NoError(t, err)
	assert.Len(t, active, 1)

	stored, err := env.accounts.GetAccountByID(account.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"team"}, stored.SyncSettings.Data().CalendarIDs)
}
