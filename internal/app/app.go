// Package app assembles the services shared by the HTTP server and the CLI.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/victorcalife/TOIT-Nexus-sub010/internal/api/middleware"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/config"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/providers"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/services"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/workflow"
	"gorm.io/gorm"
)

// App holds every long-lived component
type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Auth     *middleware.AuthManager
	Registry *providers.Registry
	Engine   workflow.Engine

	Users     *services.UserService
	Workflows *services.WorkflowService
	Accounts  *services.AccountService
	Triggers  *services.TriggerService
	Dispatch  *services.DispatchService
	Audit     *services.AuditService
	Logs      *services.LogService
	Pipeline  *services.CalendarWorkflowService

	SyncScheduler  *services.SyncScheduler
	TokenScheduler *services.TokenScheduler

	closers []func() error
}

// NewRegistry builds the provider registry from configuration
func NewRegistry(cfg *config.Config) *providers.Registry {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout()}

	caldav := providers.NewCalDAVProvider()
	caldav.HTTPClient = httpClient
	apple := providers.NewAppleProvider(cfg.AppleCalDAVURL)
	apple.HTTPClient = httpClient

	return providers.NewRegistry(
		providers.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret),
		providers.NewOutlookProvider(cfg.MicrosoftClientID, cfg.MicrosoftClientSecret, cfg.MicrosoftTenant),
		caldav,
		apple,
	)
}

// NewEngine returns the redis queue engine when redis is configured and
// the logging engine otherwise
func NewEngine(ctx context.Context, cfg *config.Config) (workflow.Engine, func() error, error) {
	if cfg.RedisAddr == "" {
		log.Println("[App] No redis configured, dispatches are only logged")
		return workflow.LogEngine{}, nil, nil
	}
	engine, err := workflow.NewRedisEngine(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisQueueKey)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	log.Printf("[App] Dispatching to redis at %s", cfg.RedisAddr)
	return engine, engine.Close, nil
}

// New wires the services on top of an initialized database
func New(ctx context.Context, db *gorm.DB, cfg *config.Config) (*App, error) {
	auth, err := middleware.NewAuthManager(cfg.DataDir, cfg.JWTSecret, middleware.DefaultTokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("init auth: %w", err)
	}
	engine, closeEngine, err := NewEngine(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		DB:       db,
		Auth:     auth,
		Registry: NewRegistry(cfg),
		Engine:   engine,
	}
	if closeEngine != nil {
		a.closers = append(a.closers, closeEngine)
	}

	a.Logs = services.NewLogServiceWithLevel(db, cfg.LogLevel)
	a.Users = services.NewUserService(db)
	a.Workflows = services.NewWorkflowService(db)
	a.Accounts = services.NewAccountService(db, cfg.GetEncryptionKey(), a.Registry)
	a.Triggers = services.NewTriggerService(db)
	a.Dispatch = services.NewDispatchService(db, engine)
	a.Audit = services.NewAuditService(db)
	a.Pipeline = services.NewCalendarWorkflowService(a.Accounts, a.Triggers, a.Dispatch, a.Audit, a.Registry, a.Logs)
	a.SyncScheduler = services.NewSyncScheduler(a.Accounts, a.Pipeline, cfg.SyncInterval())
	a.TokenScheduler = services.NewTokenScheduler(a.Accounts, a.Registry, cfg.TokenRefreshInterval())

	return a, nil
}

// StartSchedulers starts the periodic sync and token refresh
func (a *App) StartSchedulers(ctx context.Context) error {
	if err := a.SyncScheduler.Start(ctx); err != nil {
		return err
	}
	a.TokenScheduler.Start()
	return nil
}

// Close stops the schedulers and releases external connections
func (a *App) Close() {
	a.SyncScheduler.Stop()
	a.TokenScheduler.Stop()
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			log.Printf("[App] Close failed: %v", err)
		}
	}
}
