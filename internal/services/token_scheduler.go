package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/victorcalife/TOIT-Nexus-sub010/internal/providers"
)

// refreshLeadTime is how long before expiry a token is refreshed
const refreshLeadTime = 10 * time.Minute

// TokenScheduler handles automatic OAuth token refresh
type TokenScheduler struct {
	accounts *AccountService
	registry *providers.Registry
	interval time.Duration
	stopChan chan struct{}
	running  bool
	mu       sync.Mutex
}

// NewTokenScheduler creates a new token scheduler
func NewTokenScheduler(accounts *AccountService, registry *providers.Registry, interval time.Duration) *TokenScheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &TokenScheduler{
		accounts: accounts,
		registry: registry,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the token refresh scheduler
func (s *TokenScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	go s.run()
	log.Printf("[TokenScheduler] Started with interval %v", s.interval)
}

// Stop stops the token refresh scheduler
func (s *TokenScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopChan)
	s.running = false
	log.Println("[TokenScheduler] Stopped")
}

func (s *TokenScheduler) run() {
	s.RefreshExpiringTokens(context.Background())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RefreshExpiringTokens(context.Background())
		case <-s.stopChan:
			return
		}
	}
}

// RefreshExpiringTokens refreshes tokens about to expire and returns how many were refreshed
func (s *TokenScheduler) RefreshExpiringTokens(ctx context.Context) int {
	accounts, err := s.accounts.AccountsWithExpiringTokens(time.Now().Add(refreshLeadTime))
	if err != nil {
		log.Printf("[TokenScheduler] Error finding accounts: %v", err)
		return 0
	}
	if len(accounts) == 0 {
		return 0
	}

	log.Printf("[TokenScheduler] Found %d accounts with expiring tokens", len(accounts))

	refreshed := 0
	for i := range accounts {
		account := &accounts[i]
		refresher, err := s.registry.Refresher(account.Provider)
		if err != nil {
			log.Printf("[TokenScheduler] No refresher for %s (%s): %v", account.Email, account.Provider, err)
			continue
		}
		creds, err := s.accounts.Credentials(account)
		if err != nil {
			log.Printf("[TokenScheduler] Failed to open credentials of %s: %v", account.Email, err)
			continue
		}
		updated, err := refresher.RefreshToken(ctx, creds)
		if err != nil {
			log.Printf("[TokenScheduler] Failed to refresh token for %s: %v", account.Email, err)
			continue
		}
		if err := s.accounts.UpdateCredentials(account.ID, updated); err != nil {
			log.Printf("[TokenScheduler] Failed to store refreshed token for %s: %v", account.Email, err)
			continue
		}
		refreshed++
		log.Printf("[TokenScheduler] Successfully refreshed token for %s", account.Email)
	}
	return refreshed
}
