package stores

import (
	"context"
	"errors"
	"time"

	"github.com/openfroyo/walworkspace/pkg/engine"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// CallbackRecord is a reconciliation context persisted between two
// invocations of the same operation.
type CallbackRecord struct {
	RequestToken  string                       `json:"request_token"`
	Action        engine.Action                `json:"action"`
	Workspace     string                       `json:"workspace"`
	Request       string                       `json:"request"` // JSON blob of engine.Request
	Context       engine.ReconciliationContext `json:"context"`
	Attempt       int                          `json:"attempt"`
	NextAttemptAt time.Time                    `json:"next_attempt_at"`
	CreatedAt     time.Time                    `json:"created_at"`
	UpdatedAt     time.Time                    `json:"updated_at"`
}

// Invocation is one handler invocation in the append-only invocation log.
type Invocation struct {
	ID            int64            `json:"id"`
	RequestToken  string           `json:"request_token"`
	Action        engine.Action    `json:"action"`
	Workspace     string           `json:"workspace"`
	Status        engine.Status    `json:"status"`
	ErrorCode     engine.ErrorKind `json:"error_code,omitempty"`
	Message       string           `json:"message,omitempty"`
	RetryAttempts int              `json:"retry_attempts"`
	Attempt       int              `json:"attempt"`
	Duration      time.Duration    `json:"duration"`
	Timestamp     time.Time        `json:"timestamp"`
}

// InvocationFilter narrows ListInvocations. Nil fields match everything.
type InvocationFilter struct {
	RequestToken *string
	Workspace    *string
	Status       *engine.Status
	Limit        int
	Offset       int
}

// Store defines the interface for the persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Reconciliation contexts
	SaveContext(ctx context.Context, rec *CallbackRecord) error
	LoadContext(ctx context.Context, requestToken string) (*CallbackRecord, error)
	DeleteContext(ctx context.Context, requestToken string) error
	ListContexts(ctx context.Context, limit, offset int) ([]*CallbackRecord, error)
	DueContexts(ctx context.Context, now time.Time) ([]*CallbackRecord, error)

	// Invocation log
	RecordInvocation(ctx context.Context, inv *Invocation) error
	ListInvocations(ctx context.Context, filter InvocationFilter) ([]*Invocation, error)
	PruneInvocations(ctx context.Context, before time.Time) (int64, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
