package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrSyncInProgress indicates the account is already being synced
var ErrSyncInProgress = errors.New("account sync already in progress")

// SyncScheduler runs the calendar sync cycle periodically
type SyncScheduler struct {
	accounts     *AccountService
	pipeline     *CalendarWorkflowService
	interval     time.Duration
	cron         *cron.Cron
	ctx          context.Context
	cancel       context.CancelFunc
	running      bool
	mu           sync.Mutex
	syncing      sync.Mutex // guards against overlapping cycles
	accountLocks sync.Map   // per-account lock shared with manual syncs
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(accounts *AccountService, pipeline *CalendarWorkflowService, interval time.Duration) *SyncScheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &SyncScheduler{
		accounts: accounts,
		pipeline: pipeline,
		interval: interval,
	}
}

// Start schedules the sync cycle every interval
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		log.Println("[SyncScheduler] Running scheduled sync...")
		s.RunNow(s.ctx)
	}); err != nil {
		s.cancel()
		return fmt.Errorf("schedule sync: %w", err)
	}
	s.cron.Start()
	s.running = true

	log.Printf("[SyncScheduler] Starting with interval: %v", s.interval)
	return nil
}

// Stop cancels in-flight work and waits for a running cycle to finish
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	c := s.cron
	s.mu.Unlock()

	<-c.Stop().Done()
	log.Println("[SyncScheduler] Stopped")
}

// IsRunning reports whether the periodic task is scheduled
func (s *SyncScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// TryLockAccount locks an account for syncing; false if it is already locked
func (s *SyncScheduler) TryLockAccount(accountID uint) bool {
	_, loaded := s.accountLocks.LoadOrStore(accountID, true)
	return !loaded
}

// UnlockAccount releases an account lock
func (s *SyncScheduler) UnlockAccount(accountID uint) {
	s.accountLocks.Delete(accountID)
}

// IsAccountSyncing reports whether an account is being synced
func (s *SyncScheduler) IsAccountSyncing(accountID uint) bool {
	_, loaded := s.accountLocks.Load(accountID)
	return loaded
}

// RunNow runs one cycle over every active account. It returns false when
// the previous cycle is still running and this one was skipped.
func (s *SyncScheduler) RunNow(ctx context.Context) ([]SyncResult, bool) {
	return s.runCycle(ctx, "")
}

// SyncTenantNow runs one cycle over the active accounts of a tenant
func (s *SyncScheduler) SyncTenantNow(ctx context.Context, tenantID string) ([]SyncResult, bool) {
	return s.runCycle(ctx, tenantID)
}

func (s *SyncScheduler) runCycle(ctx context.Context, tenantID string) ([]SyncResult, bool) {
	if !s.syncing.TryLock() {
		log.Println("[SyncScheduler] Previous sync still running, skipping this cycle")
		return nil, false
	}
	defer s.syncing.Unlock()

	accounts, err := s.accounts.ListActiveAccounts(tenantID)
	if err != nil {
		log.Printf("[SyncScheduler] Failed to get accounts: %v", err)
		return nil, true
	}
	if len(accounts) == 0 {
		log.Println("[SyncScheduler] No active accounts found")
		return nil, true
	}

	log.Printf("[SyncScheduler] Syncing %d accounts", len(accounts))

	results := make([]SyncResult, 0, len(accounts))
	for i := range accounts {
		if ctx.Err() != nil {
			log.Println("[SyncScheduler] Cycle cancelled")
			break
		}
		account := &accounts[i]
		if !s.TryLockAccount(account.ID) {
			log.Printf("[SyncScheduler] Account %d (%s) is already syncing, skipping", account.ID, account.Email)
			continue
		}
		result := s.pipeline.SyncAccount(ctx, account)
		s.UnlockAccount(account.ID)

		if result.Err != nil {
			log.Printf("[SyncScheduler] Account %d (%s) sync failed: %v", account.ID, account.Email, result.Err)
		} else if result.Dispatched > 0 {
			log.Printf("[SyncScheduler] Account %d (%s) dispatched %d executions", account.ID, account.Email, result.Dispatched)
		}
		results = append(results, result)
	}

	log.Println("[SyncScheduler] Sync cycle completed")
	return results, true
}

// SyncAccountNow syncs one account of a tenant outside the periodic cycle
func (s *SyncScheduler) SyncAccountNow(ctx context.Context, tenantID string, accountID uint) (SyncResult, error) {
	account, err := s.accounts.GetAccount(tenantID, accountID)
	if err != nil {
		return SyncResult{}, err
	}
	if !s.TryLockAccount(account.ID) {
		return SyncResult{}, ErrSyncInProgress
	}
	defer s.UnlockAccount(account.ID)

	return s.pipeline.SyncAccount(ctx, account), nil
}
