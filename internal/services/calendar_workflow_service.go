package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/providers"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/triggers"
)

// SyncResult summarizes one account sync
type SyncResult struct {
	AccountID  uint          `json:"account_id"`
	EventCount int           `json:"event_count"`
	Dispatched int           `json:"dispatched"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
}

// ErrorMessage returns the sync error message or ""
func (r SyncResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// CalendarWorkflowService runs the fetch, match and dispatch pipeline for one account
type CalendarWorkflowService struct {
	accounts   *AccountService
	triggers   *TriggerService
	dispatch   *DispatchService
	audit      *AuditService
	registry   *providers.Registry
	logService *LogService
	now        func() time.Time
}

// NewCalendarWorkflowService creates a new CalendarWorkflowService instance
func NewCalendarWorkflowService(accounts *AccountService, triggerService *TriggerService, dispatch *DispatchService, audit *AuditService, registry *providers.Registry, logService *LogService) *CalendarWorkflowService {
	return &CalendarWorkflowService{
		accounts:   accounts,
		triggers:   triggerService,
		dispatch:   dispatch,
		audit:      audit,
		registry:   registry,
		logService: logService,
		now:        time.Now,
	}
}

// SyncAccount fetches the account's events, fires matching triggers and
// records last_sync_at and last_error on the account.
func (s *CalendarWorkflowService) SyncAccount(ctx context.Context, account *models.CalendarAccount) SyncResult {
	now := s.now()
	result := SyncResult{AccountID: account.ID}

	s.syncAccount(ctx, account, now, &result)
	result.Duration = s.now().Sub(now)

	if err := s.accounts.RecordSyncResult(account.ID, now, result.Err); err != nil {
		log.Printf("[CalendarSync] Failed to record sync result for account %d: %v", account.ID, err)
	}
	s.logService.LogSync(account.TenantID, result)
	return result
}

func (s *CalendarWorkflowService) syncAccount(ctx context.Context, account *models.CalendarAccount, now time.Time, result *SyncResult) {
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("sync panic: %v", r)
			log.Printf("[CalendarSync] Account %d (%s) panicked: %v", account.ID, account.Email, r)
		}
	}()

	creds, err := s.accounts.Credentials(account)
	if err != nil {
		result.Err = err
		return
	}
	events, err := s.registry.FetchEvents(ctx, account, creds, now)
	if err != nil {
		result.Err = fmt.Errorf("fetch events: %w", err)
		return
	}
	result.EventCount = len(events)

	list, err := s.triggers.ActiveTriggersForAccount(account.ID)
	if err != nil {
		result.Err = fmt.Errorf("load triggers: %w", err)
		return
	}
	if len(list) == 0 {
		return
	}

	result.Dispatched, result.Failed = s.ProcessEvents(ctx, account, events, list, now)
}

// ProcessEvents evaluates every event against the triggers and dispatches matches.
// event_starts_soon triggers fire only inside their start window and carry a
// reminder context. A failing event is recorded in the processing queue and
// the loop moves on.
func (s *CalendarWorkflowService) ProcessEvents(ctx context.Context, account *models.CalendarAccount, events []models.CalendarEvent, list []models.CalendarTrigger, now time.Time) (dispatched, failed int) {
	var regular, startsSoon []*models.CalendarTrigger
	for i := range list {
		if list[i].TriggerType == models.TriggerEventStartsSoon {
			startsSoon = append(startsSoon, &list[i])
		} else {
			regular = append(regular, &list[i])
		}
	}

	for i := range events {
		event := &events[i]
		matched, fired, err := s.processEvent(ctx, event, regular, startsSoon, now)
		dispatched += fired
		if err != nil {
			failed++
			log.Printf("[CalendarSync] Event %s of account %d failed: %v", event.ID, account.ID, err)
		}
		if err != nil || len(matched) > 0 {
			if _, qerr := s.audit.RecordQueueEntry(account, *event, matched, err); qerr != nil {
				log.Printf("[CalendarSync] Failed to record queue entry for event %s: %v", event.ID, qerr)
			}
		}
	}
	return dispatched, failed
}

// processEvent fires every matching trigger of one event. A failed hand-off
// does not stop the remaining triggers; the errors are joined.
func (s *CalendarWorkflowService) processEvent(ctx context.Context, event *models.CalendarEvent, regular, startsSoon []*models.CalendarTrigger, now time.Time) (matched []uint, fired int, err error) {
	var errs []error
	defer func() {
		if r := recover(); r != nil {
			err = errors.Join(append(errs, fmt.Errorf("event panic: %v", r))...)
		}
	}()

	fireOne := func(trigger *models.CalendarTrigger, data map[string]any) {
		matched = append(matched, trigger.ID)
		ok, ferr := s.fire(ctx, trigger, event, data, now)
		if ferr != nil {
			errs = append(errs, fmt.Errorf("trigger %d: %w", trigger.ID, ferr))
			return
		}
		if ok {
			fired++
		}
	}

	for _, trigger := range regular {
		if !triggers.Evaluate(trigger, event, now) {
			continue
		}
		fireOne(trigger, triggers.Extract(trigger, event))
	}

	for _, trigger := range startsSoon {
		if !triggers.InScope(trigger, event) || !triggers.IsStartingSoon(trigger, event, now) {
			continue
		}
		if !triggers.MatchesContentRules(trigger, event) {
			continue
		}
		data := triggers.Extract(trigger, event)
		data[triggers.ReminderContextKey] = triggers.ReminderContext(trigger, event, now)
		fireOne(trigger, data)
	}
	return matched, fired, errors.Join(errs...)
}

// fire dispatches unless the same fire key already succeeded. Every dispatch
// that reached the execution history counts as a firing of the trigger,
// including failed hand-offs.
func (s *CalendarWorkflowService) fire(ctx context.Context, trigger *models.CalendarTrigger, event *models.CalendarEvent, data map[string]any, now time.Time) (bool, error) {
	done, err := s.dispatch.AlreadyFired(triggers.FireKey(trigger, event))
	if err != nil {
		return false, err
	}
	if done {
		return false, nil
	}
	entry, err := s.dispatch.Dispatch(ctx, trigger, event, data)
	if entry != nil {
		if rerr := s.triggers.RecordFire(trigger.ID, now); rerr != nil {
			log.Printf("[CalendarSync] Failed to update trigger %d counters: %v", trigger.ID, rerr)
		}
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
