package stores

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openfroyo/walworkspace/pkg/engine"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.HealthCheck(ctx); err == nil {
		t.Error("expected health check to fail before Init")
	}

	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Error("expected error for empty path")
	}
}

// TestStoreMigrations tests database migrations
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, table := range []string{"callback_contexts", "invocations"} {
		var count int
		err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		if err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}

	// Running migrations twice is a no-op.
	if err := store.Migrate(ctx); err != nil {
		t.Errorf("second migration failed: %v", err)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walws.db")

	store, err := NewSQLiteStore(Config{Path: path})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	rec := &CallbackRecord{
		RequestToken:  "tok-file",
		Action:        engine.ActionCreate,
		Workspace:     "wal-1",
		Context:       engine.NewReconciliationContext(),
		NextAttemptAt: time.Now(),
	}
	if err := store.SaveContext(ctx, rec); err != nil {
		t.Fatalf("failed to save context: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected database file: %v", err)
	}

	reopened, err := NewSQLiteStore(Config{Path: path})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := reopened.Init(ctx); err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.LoadContext(ctx, "tok-file")
	if err != nil {
		t.Fatalf("failed to load context after reopen: %v", err)
	}
	if loaded.Context.RetryAttempts != engine.DefaultRetryAttempts {
		t.Errorf("expected %d retry attempts, got %d", engine.DefaultRetryAttempts, loaded.Context.RetryAttempts)
	}
}

func TestContextCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	next := time.Now().Add(5 * time.Second)

	rec := &CallbackRecord{
		RequestToken:  "tok-1",
		Action:        engine.ActionUpdate,
		Workspace:     "wal-1",
		Request:       `{"desiredResourceState":{"WALWorkspaceName":"wal-1"}}`,
		Context:       engine.ReconciliationContext{RetryAttempts: 4, WorkspaceARN: "arn:aws:emrwal:us-east-1:123456789012:workspace/wal-1"},
		Attempt:       1,
		NextAttemptAt: next,
	}

	// Save
	if err := store.SaveContext(ctx, rec); err != nil {
		t.Fatalf("failed to save context: %v", err)
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	// Load
	loaded, err := store.LoadContext(ctx, "tok-1")
	if err != nil {
		t.Fatalf("failed to load context: %v", err)
	}
	if loaded.Action != engine.ActionUpdate {
		t.Errorf("expected Action %s, got %s", engine.ActionUpdate, loaded.Action)
	}
	if loaded.Context != rec.Context {
		t.Errorf("expected Context %+v, got %+v", rec.Context, loaded.Context)
	}
	if loaded.Request != rec.Request {
		t.Errorf("expected Request %s, got %s", rec.Request, loaded.Request)
	}
	if d := loaded.NextAttemptAt.Sub(next); d > time.Millisecond || d < -time.Millisecond {
		t.Errorf("expected NextAttemptAt %v, got %v", next, loaded.NextAttemptAt)
	}

	// Overwrite
	rec.Context = rec.Context.WithDecrementedBudget()
	rec.Attempt = 2
	if err := store.SaveContext(ctx, rec); err != nil {
		t.Fatalf("failed to overwrite context: %v", err)
	}
	loaded, err = store.LoadContext(ctx, "tok-1")
	if err != nil {
		t.Fatalf("failed to load context: %v", err)
	}
	if loaded.Context.RetryAttempts != 3 {
		t.Errorf("expected 3 retry attempts, got %d", loaded.Context.RetryAttempts)
	}
	if loaded.Attempt != 2 {
		t.Errorf("expected Attempt 2, got %d", loaded.Attempt)
	}

	// List
	records, err := store.ListContexts(ctx, 10, 0)
	if err != nil {
		t.Fatalf("failed to list contexts: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 context, got %d", len(records))
	}

	// Delete
	if err := store.DeleteContext(ctx, "tok-1"); err != nil {
		t.Fatalf("failed to delete context: %v", err)
	}
	if _, err := store.LoadContext(ctx, "tok-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteContext(ctx, "tok-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSaveContextRequiresToken(t *testing.T) {
	store := setupTestStore(t)

	if err := store.SaveContext(context.Background(), &CallbackRecord{}); err == nil {
		t.Error("expected error for empty request token")
	}
}

func TestDueContexts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	records := []*CallbackRecord{
		{RequestToken: "late", Action: engine.ActionCreate, NextAttemptAt: now.Add(time.Hour)},
		{RequestToken: "due-2", Action: engine.ActionCreate, NextAttemptAt: now.Add(-time.Second)},
		{RequestToken: "due-1", Action: engine.ActionDelete, NextAttemptAt: now.Add(-time.Minute)},
	}
	for _, rec := range records {
		if err := store.SaveContext(ctx, rec); err != nil {
			t.Fatalf("failed to save context %s: %v", rec.RequestToken, err)
		}
	}

	due, err := store.DueContexts(ctx, now)
	if err != nil {
		t.Fatalf("failed to list due contexts: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due contexts, got %d", len(due))
	}
	if due[0].RequestToken != "due-1" || due[1].RequestToken != "due-2" {
		t.Errorf("expected due-1, due-2 in order, got %s, %s", due[0].RequestToken, due[1].RequestToken)
	}

	all, err := store.ListContexts(ctx, 10, 0)
	if err != nil {
		t.Fatalf("failed to list contexts: %v", err)
	}
	if len(all) != 3 || all[2].RequestToken != "late" {
		t.Errorf("expected late context last, got %d records", len(all))
	}
}

func TestInvocationLog(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	invocations := []*Invocation{
		{RequestToken: "tok-1", Action: engine.ActionCreate, Workspace: "wal-1", Status: engine.StatusInProgress, RetryAttempts: 4, Attempt: 1, Duration: 120 * time.Millisecond},
		{RequestToken: "tok-1", Action: engine.ActionCreate, Workspace: "wal-1", Status: engine.StatusSuccess, RetryAttempts: 4, Attempt: 2, Duration: 80 * time.Millisecond},
		{RequestToken: "tok-2", Action: engine.ActionDelete, Workspace: "wal-2", Status: engine.StatusFailed, ErrorCode: engine.ErrorKindNotFound, Message: "gone", Attempt: 1},
	}
	for _, inv := range invocations {
		if err := store.RecordInvocation(ctx, inv); err != nil {
			t.Fatalf("failed to record invocation: %v", err)
		}
		if inv.ID == 0 {
			t.Error("expected invocation ID to be set")
		}
	}

	all, err := store.ListInvocations(ctx, InvocationFilter{})
	if err != nil {
		t.Fatalf("failed to list invocations: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 invocations, got %d", len(all))
	}
	if all[0].RequestToken != "tok-2" {
		t.Errorf("expected newest first, got %s", all[0].RequestToken)
	}
	if all[0].ErrorCode != engine.ErrorKindNotFound {
		t.Errorf("expected ErrorCode %s, got %s", engine.ErrorKindNotFound, all[0].ErrorCode)
	}
	if all[2].Duration != 120*time.Millisecond {
		t.Errorf("expected Duration 120ms, got %v", all[2].Duration)
	}

	token := "tok-1"
	byToken, err := store.ListInvocations(ctx, InvocationFilter{RequestToken: &token})
	if err != nil {
		t.Fatalf("failed to list invocations by token: %v", err)
	}
	if len(byToken) != 2 {
		t.Errorf("expected 2 invocations for %s, got %d", token, len(byToken))
	}

	failed := engine.StatusFailed
	byStatus, err := store.ListInvocations(ctx, InvocationFilter{Status: &failed})
	if err != nil {
		t.Fatalf("failed to list invocations by status: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].Workspace != "wal-2" {
		t.Errorf("expected the wal-2 failure, got %d invocations", len(byStatus))
	}

	limited, err := store.ListInvocations(ctx, InvocationFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("failed to list invocations with limit: %v", err)
	}
	if len(limited) != 1 || limited[0].Attempt != 2 {
		t.Errorf("expected second newest invocation, got %d invocations", len(limited))
	}
}

func TestPruneInvocations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	old := &Invocation{RequestToken: "old", Action: engine.ActionRead, Status: engine.StatusSuccess, Timestamp: now.Add(-48 * time.Hour)}
	recent := &Invocation{RequestToken: "recent", Action: engine.ActionRead, Status: engine.StatusSuccess, Timestamp: now}
	for _, inv := range []*Invocation{old, recent} {
		if err := store.RecordInvocation(ctx, inv); err != nil {
			t.Fatalf("failed to record invocation: %v", err)
		}
	}

	pruned, err := store.PruneInvocations(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("failed to prune invocations: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned invocation, got %d", pruned)
	}

	remaining, err := store.ListInvocations(ctx, InvocationFilter{})
	if err != nil {
		t.Fatalf("failed to list invocations: %v", err)
	}
	if len(remaining) != 1 || remaining[0].RequestToken != "recent" {
		t.Errorf("expected only the recent invocation to remain")
	}
}
