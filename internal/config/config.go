package config

import (
	"crypto/sha256"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	DatabasePath  string `json:"database_path" yaml:"database_path"`
	DatabaseURL   string `json:"database_url" yaml:"database_url"` // postgres DSN; empty means SQLite at DatabasePath
	APIPort       string `json:"api_port" yaml:"api_port"`
	LogLevel      string `json:"log_level" yaml:"log_level"`
	DataDir       string `json:"data_dir" yaml:"data_dir"`
	JWTSecret     string `json:"jwt_secret" yaml:"jwt_secret"`
	EncryptionKey string `json:"encryption_key" yaml:"encryption_key"` // seals calendar credentials
	CORSOrigins   string `json:"cors_origins" yaml:"cors_origins"`     // comma separated, * for all

	SyncIntervalMinutes  int `json:"sync_interval_minutes" yaml:"sync_interval_minutes"`
	TokenRefreshMinutes  int `json:"token_refresh_minutes" yaml:"token_refresh_minutes"`
	HTTPTimeoutSeconds   int `json:"http_timeout_seconds" yaml:"http_timeout_seconds"`
	ShutdownGraceSeconds int `json:"shutdown_grace_seconds" yaml:"shutdown_grace_seconds"`

	RedisAddr     string `json:"redis_addr" yaml:"redis_addr"` // empty logs dispatches instead of queueing them
	RedisPassword string `json:"redis_password" yaml:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db"`
	RedisQueueKey string `json:"redis_queue_key" yaml:"redis_queue_key"`

	GoogleClientID        string `json:"google_client_id" yaml:"google_client_id"`
	GoogleClientSecret    string `json:"google_client_secret" yaml:"google_client_secret"`
	MicrosoftClientID     string `json:"microsoft_client_id" yaml:"microsoft_client_id"`
	MicrosoftClientSecret string `json:"microsoft_client_secret" yaml:"microsoft_client_secret"`
	MicrosoftTenant       string `json:"microsoft_tenant" yaml:"microsoft_tenant"`
	AppleCalDAVURL        string `json:"apple_caldav_url" yaml:"apple_caldav_url"`
	OAuthRedirectBaseURL  string `json:"oauth_redirect_base_url" yaml:"oauth_redirect_base_url"`
}

// Default configuration values
const (
	DefaultDatabasePath         = "data/toit_nexus.db"
	DefaultAPIPort              = "8080"
	DefaultLogLevel             = "INFO"
	DefaultDataDir              = "data"
	DefaultJWTSecret            = "toit-nexus-default-secret-change-in-production"
	DefaultCORSOrigins          = "*"
	DefaultSyncIntervalMinutes  = 15
	DefaultTokenRefreshMinutes  = 5
	DefaultHTTPTimeoutSeconds   = 30
	DefaultShutdownGraceSeconds = 10
	DefaultMicrosoftTenant      = "common"
	DefaultOAuthRedirectBaseURL = "http://localhost:8080"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "TOIT_NEXUS_"

// Default returns a configuration with every default applied
func Default() *Config {
	return &Config{
		DatabasePath:         DefaultDatabasePath,
		APIPort:              DefaultAPIPort,
		LogLevel:             DefaultLogLevel,
		DataDir:              DefaultDataDir,
		JWTSecret:            DefaultJWTSecret,
		CORSOrigins:          DefaultCORSOrigins,
		SyncIntervalMinutes:  DefaultSyncIntervalMinutes,
		TokenRefreshMinutes:  DefaultTokenRefreshMinutes,
		HTTPTimeoutSeconds:   DefaultHTTPTimeoutSeconds,
		ShutdownGraceSeconds: DefaultShutdownGraceSeconds,
		MicrosoftTenant:      DefaultMicrosoftTenant,
		OAuthRedirectBaseURL: DefaultOAuthRedirectBaseURL,
	}
}

// Load loads configuration from environment variables and config file
// Priority: Environment variables > Config file > Default values
func Load() (*Config, error) {
	cfg := Default()

	if err := cfg.loadFromFile(); err != nil {
		return nil, err
	}
	cfg.loadFromEnv()
	cfg.normalize()

	return cfg, nil
}

// loadFromFile reads the first config.json, config.yaml or config.yml found
// in the working directory or the data directory
func (c *Config) loadFromFile() error {
	dataDir := c.DataDir
	if val := os.Getenv(EnvPrefix + "DATA_DIR"); val != "" {
		dataDir = val
	}

	for _, dir := range []string{".", dataDir} {
		for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
			path := filepath.Join(dir, name)
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			return c.parse(path, data)
		}
	}
	return nil
}

func (c *Config) parse(path string, data []byte) error {
	if filepath.Ext(path) == ".json" {
		return json.Unmarshal(data, c)
	}
	return yaml.Unmarshal(data, c)
}

// loadFromEnv loads configuration from TOIT_NEXUS_* environment variables
func (c *Config) loadFromEnv() {
	stringVars := map[string]*string{
		"DATABASE_PATH":           &c.DatabasePath,
		"DATABASE_URL":            &c.DatabaseURL,
		"API_PORT":                &c.APIPort,
		"LOG_LEVEL":               &c.LogLevel,
		"DATA_DIR":                &c.DataDir,
		"JWT_SECRET":              &c.JWTSecret,
		"ENCRYPTION_KEY":          &c.EncryptionKey,
		"CORS_ORIGINS":            &c.CORSOrigins,
		"REDIS_ADDR":              &c.RedisAddr,
		"REDIS_PASSWORD":          &c.RedisPassword,
		"REDIS_QUEUE_KEY":         &c.RedisQueueKey,
		"GOOGLE_CLIENT_ID":        &c.GoogleClientID,
		"GOOGLE_CLIENT_SECRET":    &c.GoogleClientSecret,
		"MICROSOFT_CLIENT_ID":     &c.MicrosoftClientID,
		"MICROSOFT_CLIENT_SECRET": &c.MicrosoftClientSecret,
		"MICROSOFT_TENANT":        &c.MicrosoftTenant,
		"APPLE_CALDAV_URL":        &c.AppleCalDAVURL,
		"OAUTH_REDIRECT_BASE_URL": &c.OAuthRedirectBaseURL,
	}
	for name, field := range stringVars {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			*field = val
		}
	}

	intVars := map[string]*int{
		"SYNC_INTERVAL_MINUTES":  &c.SyncIntervalMinutes,
		"TOKEN_REFRESH_MINUTES":  &c.TokenRefreshMinutes,
		"HTTP_TIMEOUT_SECONDS":   &c.HTTPTimeoutSeconds,
		"SHUTDOWN_GRACE_SECONDS": &c.ShutdownGraceSeconds,
		"REDIS_DB":               &c.RedisDB,
	}
	for name, field := range intVars {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			if n, err := strconv.Atoi(val); err == nil {
				*field = n
			}
		}
	}
}

// normalize replaces non-positive durations with their defaults
func (c *Config) normalize() {
	if c.SyncIntervalMinutes <= 0 {
		c.SyncIntervalMinutes = DefaultSyncIntervalMinutes
	}
	if c.TokenRefreshMinutes <= 0 {
		c.TokenRefreshMinutes = DefaultTokenRefreshMinutes
	}
	if c.HTTPTimeoutSeconds <= 0 {
		c.HTTPTimeoutSeconds = DefaultHTTPTimeoutSeconds
	}
	if c.ShutdownGraceSeconds <= 0 {
		c.ShutdownGraceSeconds = DefaultShutdownGraceSeconds
	}
	c.LogLevel = strings.ToUpper(c.LogLevel)
}

// SyncInterval returns the period of the calendar sync cycle
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalMinutes) * time.Minute
}

// TokenRefreshInterval returns the period of the OAuth token refresh task
func (c *Config) TokenRefreshInterval() time.Duration {
	return time.Duration(c.TokenRefreshMinutes) * time.Minute
}

// HTTPTimeout bounds each provider request
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// ShutdownGrace bounds the graceful HTTP shutdown
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSeconds) * time.Second
}

// AllowedOrigins splits CORSOrigins into a list
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// GetEncryptionKey returns the 32-byte key sealing calendar credentials.
// Without EncryptionKey it is derived from JWTSecret.
func (c *Config) GetEncryptionKey() []byte {
	if c.EncryptionKey != "" {
		hash := sha256.Sum256([]byte(c.EncryptionKey))
		return hash[:]
	}
	hash := sha256.Sum256([]byte(c.JWTSecret + "-encryption"))
	return hash[:]
}

// Save saves the current configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
