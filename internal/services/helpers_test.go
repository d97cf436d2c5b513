package services

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/providers"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/workflow"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testTenant = "acme"

var testKey = []byte("0123456789abcdef0123456789abcdef")

func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	tmpFile, err := os.CreateTemp("", "toit_test_*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	tmpFile.Close()

	db, err := gorm.Open(sqlite.Open(tmpFile.Name()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("Failed to open database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("Failed to migrate: %v", err)
	}

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		os.Remove(tmpFile.Name())
	}
	return db, cleanup
}

// fakeProvider serves canned events per account email
type fakeProvider struct {
	mu     sync.Mutex
	events map[string][]models.CalendarEvent
	errs   map[string]error
	panics map[string]bool
	calls  []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		events: map[string][]models.CalendarEvent{},
		errs:   map[string]error{},
		panics: map[string]bool{},
	}
}

func (f *fakeProvider) Name() models.CalendarProvider { return models.ProviderCalDAV }

func (f *fakeProvider) TestConnection(_ context.Context, account *models.CalendarAccount, _ models.Credentials) providers.TestResult {
	if err := f.errs[account.Email]; err != nil {
		return providers.TestResult{Success: false, Message: err.Error()}
	}
	return providers.TestResult{Success: true, Message: "Connection successful"}
}

func (f *fakeProvider) FetchEvents(_ context.Context, account *models.CalendarAccount, _ models.Credentials, _ providers.FetchWindow) ([]models.CalendarEvent, error) {
	f.mu.Lock()
	f.calls = append(f.calls, account.Email)
	f.mu.Unlock()
	if f.panics[account.Email] {
		panic("provider exploded")
	}
	if err := f.errs[account.Email]; err != nil {
		return nil, err
	}
	return f.events[account.Email], nil
}

// recordingEngine collects execution requests and fails for chosen workflows
type recordingEngine struct {
	mu       sync.Mutex
	requests []workflow.ExecutionRequest
	failFor  map[uint]error
}

func (e *recordingEngine) Execute(_ context.Context, req workflow.ExecutionRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, req)
	if err := e.failFor[req.WorkflowID]; err != nil {
		return err
	}
	return nil
}

type testEnv struct {
	db        *gorm.DB
	provider  *fakeProvider
	engine    *recordingEngine
	accounts  *AccountService
	triggers  *TriggerService
	workflows *WorkflowService
	dispatch  *DispatchService
	audit     *AuditService
	pipeline  *CalendarWorkflowService
	scheduler *SyncScheduler
	now       time.Time
}

func newTestEnv(t *testing.T) (*testEnv, func()) {
	db, cleanup := setupTestDB(t)
	provider := newFakeProvider()
	registry := providers.NewRegistry(provider)
	engine := &recordingEngine{failFor: map[uint]error{}}

	env := &testEnv{
		db:        db,
		provider:  provider,
		engine:    engine,
		accounts:  NewAccountService(db, testKey, registry),
		triggers:  NewTriggerService(db),
		workflows: NewWorkflowService(db),
		dispatch:  NewDispatchService(db, engine),
		audit:     NewAuditService(db),
		now:       time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	env.pipeline = NewCalendarWorkflowService(env.accounts, env.triggers, env.dispatch, env.audit, registry, NewLogService(db))
	env.pipeline.now = func() time.Time { return env.now }
	env.dispatch.now = func() time.Time { return env.now }
	env.scheduler = NewSyncScheduler(env.accounts, env.pipeline, time.Hour)
	return env, cleanup
}

func (env *testEnv) connect(t *testing.T, email string) *models.CalendarAccount {
	t.Helper()
	account, err := env.accounts.ConnectAccount(ConnectAccountInput{
		TenantID:    testTenant,
		Email:       email,
		Provider:    models.ProviderCalDAV,
		ServerURL:   "https://dav.example.com",
		Credentials: models.Credentials{Password: "app-password"},
	})
	if err != nil {
		t.Fatalf("connect %s: %v", email, err)
	}
	return account
}

func (env *testEnv) workflow(t *testing.T, name string) *models.Workflow {
	t.Helper()
	wf, err := env.workflows.CreateWorkflow(testTenant, name, "")
	if err != nil {
		t.Fatalf("create workflow: %v", err)
	}
	return wf
}

func (env *testEnv) trigger(t *testing.T, wf *models.Workflow, account *models.CalendarAccount, input TriggerInput) *models.CalendarTrigger {
	t.Helper()
	input.WorkflowID = wf.ID
	input.CalendarAccountID = account.ID
	if input.Name == "" {
		input.Name = "trigger"
	}
	trigger, err := env.triggers.CreateTrigger(testTenant, input)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}
	return trigger
}

func eventAt(id, title string, start time.Time) models.CalendarEvent {
	return models.CalendarEvent{
		ID:         id,
		Title:      title,
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
		CalendarID: "primary",
		Status:     models.EventStatusConfirmed,
		Updated:    start.Add(-24 * time.Hour),
	}
}

func intPtr(v int) *int { return &v }
