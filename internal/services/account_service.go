package services

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/providers"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrAccountNotFound indicates the calendar account was not found
	ErrAccountNotFound = errors.New("calendar account not found")
	// ErrAccountAlreadyExists indicates the calendar is already connected for this tenant
	ErrAccountAlreadyExists = errors.New("calendar account already connected")
	// ErrInvalidAccountData indicates invalid account data
	ErrInvalidAccountData = errors.New("invalid account data")
	// ErrEncryptionFailed indicates credential sealing failed
	ErrEncryptionFailed = errors.New("credential encryption failed")
	// ErrDecryptionFailed indicates credential opening failed
	ErrDecryptionFailed = errors.New("credential decryption failed")
)

// AccountService manages connected calendar accounts
type AccountService struct {
	db            *gorm.DB
	encryptionKey []byte // 32 bytes for AES-256
	registry      *providers.Registry
	logService    *LogService
}

// NewAccountService creates a new AccountService instance
func NewAccountService(db *gorm.DB, encryptionKey []byte, registry *providers.Registry) *AccountService {
	// Ensure key is 32 bytes for AES-256
	key := make([]byte, 32)
	copy(key, encryptionKey)
	return &AccountService{
		db:            db,
		encryptionKey: key,
		registry:      registry,
		logService:    NewLogService(db),
	}
}

// seal encrypts plaintext using AES-256-GCM; the nonce is prepended
func (s *AccountService) seal(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", ErrEncryptionFailed
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", ErrEncryptionFailed
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", ErrEncryptionFailed
	}
	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// open decrypts a value produced by seal
func (s *AccountService) open(sealed string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrDecryptionFailed
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// SealCredentials serializes and encrypts credentials for storage
func (s *AccountService) SealCredentials(creds models.Credentials) (string, error) {
	raw, err := json.Marshal(creds)
	if err != nil {
		return "", ErrEncryptionFailed
	}
	return s.seal(raw)
}

// Credentials opens the sealed credentials of an account
func (s *AccountService) Credentials(account *models.CalendarAccount) (models.Credentials, error) {
	var creds models.Credentials
	raw, err := s.open(account.CredentialsEncrypted)
	if err != nil {
		return creds, err
	}
	if err := json.Unmarshal(raw, &creds); err != nil {
		return creds, ErrDecryptionFailed
	}
	return creds, nil
}

// ConnectAccountInput represents the input for connecting a calendar
type ConnectAccountInput struct {
	TenantID     string
	UserID       uint
	Email        string
	DisplayName  string
	Provider     models.CalendarProvider
	ServerURL    string
	Username     string
	Credentials  models.Credentials
	SyncSettings models.SyncSettings
}

func validateConnectInput(input ConnectAccountInput) error {
	if input.TenantID == "" || strings.TrimSpace(input.Email) == "" || !input.Provider.IsValid() {
		return ErrInvalidAccountData
	}
	switch input.Provider {
	case models.ProviderGoogle, models.ProviderOutlook:
		if input.Credentials.AccessToken == "" && input.Credentials.RefreshToken == "" {
			return ErrInvalidAccountData
		}
	case models.ProviderCalDAV:
		if input.ServerURL == "" || input.Credentials.Password == "" {
			return ErrInvalidAccountData
		}
	case models.ProviderApple:
		if input.Credentials.Password == "" {
			return ErrInvalidAccountData
		}
	}
	return validateSyncSettings(input.SyncSettings)
}

func validateSyncSettings(settings models.SyncSettings) error {
	if settings.SyncPastDays < 0 || settings.SyncFutureDays < 0 || settings.MaxEventsPerSync < 0 {
		return ErrInvalidAccountData
	}
	return nil
}

// ConnectAccount stores a new calendar account with sealed credentials
func (s *AccountService) ConnectAccount(input ConnectAccountInput) (*models.CalendarAccount, error) {
	if err := validateConnectInput(input); err != nil {
		return nil, err
	}

	var existing models.CalendarAccount
	if err := s.db.Where("tenant_id = ? AND email = ? AND provider = ?", input.TenantID, input.Email, input.Provider).
		First(&existing).Error; err == nil {
		return nil, ErrAccountAlreadyExists
	}

	sealed, err := s.SealCredentials(input.Credentials)
	if err != nil {
		return nil, err
	}

	account := &models.CalendarAccount{
		TenantID:             input.TenantID,
		UserID:               input.UserID,
		Email:                input.Email,
		DisplayName:          input.DisplayName,
		Provider:             input.Provider,
		ServerURL:            input.ServerURL,
		Username:             input.Username,
		CredentialsEncrypted: sealed,
		SyncSettings:         datatypes.NewJSONType(input.SyncSettings.WithDefaults()),
		IsActive:             true,
	}
	if !input.Credentials.Expiry.IsZero() {
		expiry := input.Credentials.Expiry
		account.TokenExpiry = &expiry
	}

	if err := s.db.Create(account).Error; err != nil {
		return nil, err
	}

	s.logService.LogAccountConnected(account)
	return account, nil
}

// GetAccountByID retrieves an account regardless of tenant
func (s *AccountService) GetAccountByID(id uint) (*models.CalendarAccount, error) {
	var account models.CalendarAccount
	if err := s.db.First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetAccount retrieves an account of a tenant
func (s *AccountService) GetAccount(tenantID string, id uint) (*models.CalendarAccount, error) {
	var account models.CalendarAccount
	if err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ListAccounts retrieves all accounts of a tenant
func (s *AccountService) ListAccounts(tenantID string) ([]models.CalendarAccount, error) {
	var accounts []models.CalendarAccount
	if err := s.db.Where("tenant_id = ?", tenantID).Order("id").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// ListActiveAccounts retrieves active accounts; an empty tenantID means every tenant
func (s *AccountService) ListActiveAccounts(tenantID string) ([]models.CalendarAccount, error) {
	db := s.db.Where("is_active = ?", true)
	if tenantID != "" {
		db = db.Where("tenant_id = ?", tenantID)
	}
	var accounts []models.CalendarAccount
	if err := db.Order("id").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// UpdateSyncSettings replaces the sync settings of an account
func (s *AccountService) UpdateSyncSettings(tenantID string, id uint, settings models.SyncSettings) (*models.CalendarAccount, error) {
	if err := validateSyncSettings(settings); err != nil {
		return nil, err
	}
	account, err := s.GetAccount(tenantID, id)
	if err != nil {
		return nil, err
	}
	account.SyncSettings = datatypes.NewJSONType(settings.WithDefaults())
	if err := s.db.Model(account).Update("sync_settings", account.SyncSettings).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// SetAccountActive enables or disables an account
func (s *AccountService) SetAccountActive(tenantID string, id uint, active bool) (*models.CalendarAccount, error) {
	account, err := s.GetAccount(tenantID, id)
	if err != nil {
		return nil, err
	}
	account.IsActive = active
	if err := s.db.Model(account).Update("is_active", active).Error; err != nil {
		return nil, err
	}
	s.logService.LogAccountStatusChanged(account)
	return account, nil
}

// EnableAccount enables a calendar account
func (s *AccountService) EnableAccount(tenantID string, id uint) (*models.CalendarAccount, error) {
	return s.SetAccountActive(tenantID, id, true)
}

// DisableAccount disables a calendar account
func (s *AccountService) DisableAccount(tenantID string, id uint) (*models.CalendarAccount, error) {
	return s.SetAccountActive(tenantID, id, false)
}

// TestConnection checks the account against its provider.
// A failed test deactivates the account and records the error.
func (s *AccountService) TestConnection(ctx context.Context, tenantID string, id uint) (providers.TestResult, error) {
	account, err := s.GetAccount(tenantID, id)
	if err != nil {
		return providers.TestResult{}, err
	}

	var result providers.TestResult
	creds, err := s.Credentials(account)
	if err != nil {
		result = providers.TestResult{Success: false, Message: "Failed to decrypt credentials: " + err.Error()}
	} else {
		result = s.registry.TestConnection(ctx, account, creds)
	}

	updates := map[string]interface{}{"last_error": ""}
	if !result.Success {
		updates["last_error"] = result.Message
		updates["is_active"] = false
	}
	if err := s.db.Model(&models.CalendarAccount{}).Where("id = ?", account.ID).Updates(updates).Error; err != nil {
		return result, err
	}

	s.logService.LogAccountTested(account, result.Success, result.Message)
	return result, nil
}

// RecordSyncResult stamps last_sync_at and last_error after a sync
func (s *AccountService) RecordSyncResult(accountID uint, at time.Time, syncErr error) error {
	lastError := ""
	if syncErr != nil {
		lastError = syncErr.Error()
	}
	return s.db.Model(&models.CalendarAccount{}).Where("id = ?", accountID).Updates(map[string]interface{}{
		"last_sync_at": at,
		"last_error":   lastError,
	}).Error
}

// UpdateCredentials reseals the credentials of an account, e.g. after a token refresh
func (s *AccountService) UpdateCredentials(accountID uint, creds models.Credentials) error {
	sealed, err := s.SealCredentials(creds)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{"credentials_encrypted": sealed}
	if !creds.Expiry.IsZero() {
		updates["token_expiry"] = creds.Expiry
	}
	return s.db.Model(&models.CalendarAccount{}).Where("id = ?", accountID).Updates(updates).Error
}

// AccountsWithExpiringTokens returns active OAuth accounts whose token expires before the deadline
func (s *AccountService) AccountsWithExpiringTokens(deadline time.Time) ([]models.CalendarAccount, error) {
	var accounts []models.CalendarAccount
	err := s.db.Where("is_active = ? AND provider IN ? AND token_expiry IS NOT NULL AND token_expiry < ?",
		true, []models.CalendarProvider{models.ProviderGoogle, models.ProviderOutlook}, deadline).
		Find(&accounts).Error
	return accounts, err
}
