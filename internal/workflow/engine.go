// Package workflow hands matched calendar events off to the external workflow engine.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
)

// TriggerTypeCalendar marks executions started by calendar triggers
const TriggerTypeCalendar = "calendar"

// DefaultQueueKey is the redis list consumed by the workflow engine
const DefaultQueueKey = "toit:workflow:executions"

// ExecutionContext carries the trigger and event that started an execution
type ExecutionContext struct {
	CalendarTrigger *models.CalendarTrigger `json:"calendar_trigger"`
	OriginalEvent   *models.CalendarEvent   `json:"original_event"`
}

// ExecutionRequest is the payload handed to the workflow engine
type ExecutionRequest struct {
	ExecutionID string           `json:"execution_id"`
	TenantID    string           `json:"tenant_id"`
	WorkflowID  uint             `json:"workflow_id"`
	TriggerType string           `json:"trigger_type"`
	TriggerData map[string]any   `json:"trigger_data"`
	Context     ExecutionContext `json:"context"`
	RequestedAt time.Time        `json:"requested_at"`
}

// Engine starts workflow executions
type Engine interface {
	Execute(ctx context.Context, req ExecutionRequest) error
}

// EngineFunc adapts a function to Engine
type EngineFunc func(ctx context.Context, req ExecutionRequest) error

func (f EngineFunc) Execute(ctx context.Context, req ExecutionRequest) error {
	return f(ctx, req)
}

// RedisEngine pushes execution requests onto a redis list
type RedisEngine struct {
	client *redis.Client
	key    string
}

// NewRedisEngine connects to redis at addr and verifies the connection
func NewRedisEngine(ctx context.Context, addr, password string, db int, key string) (*RedisEngine, error) {
	if key == "" {
		key = DefaultQueueKey
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Printf("[Workflow] Dispatching executions to redis list %s at %s", key, addr)
	return &RedisEngine{client: client, key: key}, nil
}

// NewRedisEngineWithClient wraps an existing client
func NewRedisEngineWithClient(client *redis.Client, key string) *RedisEngine {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisEngine{client: client, key: key}
}

func (e *RedisEngine) Execute(ctx context.Context, req ExecutionRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode execution request: %w", err)
	}
	if err := e.client.LPush(ctx, e.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue execution %s: %w", req.ExecutionID, err)
	}
	return nil
}

// Close releases the redis connection
func (e *RedisEngine) Close() error {
	return e.client.Close()
}

// LogEngine only logs hand-offs; used when no engine is configured
type LogEngine struct{}

func (LogEngine) Execute(ctx context.Context, req ExecutionRequest) error {
	if req.WorkflowID == 0 {
		return errors.New("workflow id is required")
	}
	log.Printf("[Workflow] Execution %s of workflow %d requested with %d fields", req.ExecutionID, req.WorkflowID, len(req.TriggerData))
	return nil
}
