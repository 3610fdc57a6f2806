package host

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openfroyo/walworkspace/pkg/engine"
	"github.com/openfroyo/walworkspace/pkg/policy"
	"github.com/openfroyo/walworkspace/pkg/stores"
)

// scriptedHandler returns queued outcomes in order, then fallback.
type scriptedHandler struct {
	mu       sync.Mutex
	outcomes []*engine.Outcome
	fallback *engine.Outcome
	actions  []engine.Action
	contexts []*engine.ReconciliationContext
}

func (h *scriptedHandler) next(action engine.Action, rc *engine.ReconciliationContext) *engine.Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.actions = append(h.actions, action)
	h.contexts = append(h.contexts, rc)

	if len(h.outcomes) == 0 {
		if h.fallback != nil {
			return h.fallback
		}
		return engine.Success(nil)
	}
	out := h.outcomes[0]
	h.outcomes = h.outcomes[1:]
	return out
}

func (h *scriptedHandler) Create(_ context.Context, _ *engine.Request, rc *engine.ReconciliationContext) *engine.Outcome {
	return h.next(engine.ActionCreate, rc)
}

func (h *scriptedHandler) Read(_ context.Context, _ *engine.Request, rc *engine.ReconciliationContext) *engine.Outcome {
	return h.next(engine.ActionRead, rc)
}

func (h *scriptedHandler) Update(_ context.Context, _ *engine.Request, rc *engine.ReconciliationContext) *engine.Outcome {
	return h.next(engine.ActionUpdate, rc)
}

func (h *scriptedHandler) Delete(_ context.Context, _ *engine.Request, rc *engine.ReconciliationContext) *engine.Outcome {
	return h.next(engine.ActionDelete, rc)
}

func (h *scriptedHandler) List(_ context.Context, _ *engine.Request, rc *engine.ReconciliationContext) *engine.Outcome {
	return h.next(engine.ActionList, rc)
}

func (h *scriptedHandler) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.actions)
}

func setupStore(t *testing.T) *stores.SQLiteStore {
	t.Helper()

	store, err := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
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

// newTestDriver returns a driver whose sleeps are recorded instead of waited.
func newTestDriver(t *testing.T, h engine.Handler, cfg Config, opts ...Option) (*Driver, *stores.SQLiteStore, *[]time.Duration) {
	t.Helper()

	store := setupStore(t)
	d := New(h, store, cfg, opts...)

	var delays []time.Duration
	d.sleep = func(_ context.Context, delay time.Duration) error {
		delays = append(delays, delay)
		return nil
	}
	return d, store, &delays
}

func workspaceRequest(name string) *engine.Request {
	return &engine.Request{
		DesiredResourceState: &engine.ResourceModel{Name: name},
		AWSAccountID:         "123456789012",
		AWSPartition:         "aws",
		Region:               "us-east-1",
	}
}

func inProgress(budget int) *engine.Outcome {
	return engine.InProgress(nil, engine.ReconciliationContext{RetryAttempts: budget}, "try again")
}

func TestRunTerminalFirstTime(t *testing.T) {
	h := &scriptedHandler{outcomes: []*engine.Outcome{engine.Success(&engine.ResourceModel{Name: "wal-1"})}}
	d, store, delays := newTestDriver(t, h, DefaultConfig())
	ctx := context.Background()

	out, err := d.Run(ctx, engine.ActionCreate, workspaceRequest("wal-1"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.Status != engine.StatusSuccess {
		t.Errorf("Expected SUCCESS, got %s", out.Status)
	}
	if h.calls() != 1 || len(*delays) != 0 {
		t.Errorf("Expected one call and no waits, got %d calls, %d waits", h.calls(), len(*delays))
	}
	if h.contexts[0] != nil {
		t.Error("Expected nil context on first invocation")
	}

	invocations, err := store.ListInvocations(ctx, stores.InvocationFilter{})
	if err != nil {
		t.Fatalf("Failed to list invocations: %v", err)
	}
	if len(invocations) != 1 {
		t.Fatalf("Expected 1 invocation, got %d", len(invocations))
	}
	inv := invocations[0]
	if inv.RequestToken == "" {
		t.Error("Expected a generated request token")
	}
	if inv.Attempt != 1 || inv.Workspace != "wal-1" || inv.RetryAttempts != engine.DefaultRetryAttempts {
		t.Errorf("Unexpected invocation: %+v", inv)
	}
}

func TestRunRetriesUntilTerminal(t *testing.T) {
	h := &scriptedHandler{outcomes: []*engine.Outcome{inProgress(4), inProgress(3), engine.Success(nil)}}
	d, store, delays := newTestDriver(t, h, DefaultConfig())
	ctx := context.Background()

	req := workspaceRequest("wal-1")
	req.ClientRequestToken = "token-1"

	out, err := d.Run(ctx, engine.ActionDelete, req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.Status != engine.StatusSuccess {
		t.Fatalf("Expected SUCCESS, got %s", out.Status)
	}

	if h.calls() != 3 {
		t.Fatalf("Expected 3 calls, got %d", h.calls())
	}
	if h.contexts[1] == nil || h.contexts[1].RetryAttempts != 4 {
		t.Errorf("Expected second call with budget 4, got %+v", h.contexts[1])
	}
	if h.contexts[2] == nil || h.contexts[2].RetryAttempts != 3 {
		t.Errorf("Expected third call with budget 3, got %+v", h.contexts[2])
	}

	if len(*delays) != 2 {
		t.Fatalf("Expected 2 waits, got %d", len(*delays))
	}
	bounds := []struct{ min, max time.Duration }{
		{time.Second, 1125 * time.Millisecond},
		{2 * time.Second, 2250 * time.Millisecond},
	}
	for i, b := range bounds {
		if got := (*delays)[i]; got < b.min || got > b.max {
			t.Errorf("Wait %d: expected between %s and %s, got %s", i, b.min, b.max, got)
		}
	}

	if _, err := store.LoadContext(ctx, "token-1"); !errors.Is(err, stores.ErrNotFound) {
		t.Errorf("Expected context to be deleted after a terminal outcome, got %v", err)
	}

	token := "token-1"
	invocations, err := store.ListInvocations(ctx, stores.InvocationFilter{RequestToken: &token})
	if err != nil {
		t.Fatalf("Failed to list invocations: %v", err)
	}
	if len(invocations) != 3 {
		t.Fatalf("Expected 3 invocations, got %d", len(invocations))
	}
	// Newest first.
	if invocations[0].Attempt != 3 || invocations[2].Attempt != 1 {
		t.Errorf("Unexpected attempt order: %d..%d", invocations[0].Attempt, invocations[2].Attempt)
	}
	if invocations[2].Status != engine.StatusInProgress || invocations[2].RetryAttempts != 4 {
		t.Errorf("Unexpected first invocation: %+v", invocations[2])
	}
}

func TestRunThrottledBackoff(t *testing.T) {
	throttled := inProgress(4)
	throttled.CallbackDelaySeconds = engine.ThrottledCallbackDelaySeconds

	h := &scriptedHandler{outcomes: []*engine.Outcome{throttled}}
	d, _, delays := newTestDriver(t, h, DefaultConfig())

	if _, err := d.Run(context.Background(), engine.ActionUpdate, workspaceRequest("wal-1")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(*delays) != 1 {
		t.Fatalf("Expected 1 wait, got %d", len(*delays))
	}
	if got := (*delays)[0]; got < 5*time.Second || got > 5625*time.Millisecond {
		t.Errorf("Expected throttled wait of about 5s, got %s", got)
	}
}

func TestRunInvocationBound(t *testing.T) {
	h := &scriptedHandler{fallback: inProgress(5)}
	cfg := DefaultConfig()
	cfg.MaxInvocations = 3
	d, store, _ := newTestDriver(t, h, cfg)
	ctx := context.Background()

	req := workspaceRequest("wal-1")
	req.ClientRequestToken = "token-1"

	out, err := d.Run(ctx, engine.ActionRead, req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.Status != engine.StatusFailed || out.ErrorCode != engine.ErrorKindGeneralServiceFailure {
		t.Errorf("Expected FAILED GeneralServiceException, got %s %s", out.Status, out.ErrorCode)
	}
	if h.calls() != 3 {
		t.Errorf("Expected 3 calls, got %d", h.calls())
	}
	if _, err := store.LoadContext(ctx, "token-1"); !errors.Is(err, stores.ErrNotFound) {
		t.Errorf("Expected context to be deleted, got %v", err)
	}
}

func TestRunCancelledThenResumed(t *testing.T) {
	h := &scriptedHandler{outcomes: []*engine.Outcome{inProgress(4), engine.Success(nil)}}
	d, store, _ := newTestDriver(t, h, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	d.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	req := workspaceRequest("wal-1")
	req.ClientRequestToken = "token-1"

	if _, err := d.Run(ctx, engine.ActionDelete, req); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	rec, err := store.LoadContext(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("Expected persisted context: %v", err)
	}
	if rec.Attempt != 1 || rec.Context.RetryAttempts != 4 || rec.Action != engine.ActionDelete {
		t.Errorf("Unexpected persisted record: %+v", rec)
	}

	// Nothing is due yet.
	results, err := d.Resume(context.Background())
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected nothing due, got %d", len(results))
	}

	d.now = func() time.Time { return time.Now().Add(time.Hour) }
	results, err = d.Resume(context.Background())
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}

	out, ok := results["token-1"]
	if !ok || out.Status != engine.StatusSuccess {
		t.Fatalf("Expected resumed SUCCESS, got %+v", results)
	}
	if h.contexts[1] == nil || h.contexts[1].RetryAttempts != 4 {
		t.Errorf("Expected resumed call with persisted budget, got %+v", h.contexts[1])
	}
	if h.actions[1] != engine.ActionDelete {
		t.Errorf("Expected resumed action DELETE, got %s", h.actions[1])
	}
	if _, err := store.LoadContext(context.Background(), "token-1"); !errors.Is(err, stores.ErrNotFound) {
		t.Errorf("Expected context to be deleted, got %v", err)
	}
}

func TestPreflight(t *testing.T) {
	checker, err := policy.NewEngine(zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create policy engine: %v", err)
	}

	h := &scriptedHandler{}
	d, store, _ := newTestDriver(t, h, DefaultConfig(), WithChecker(checker))
	ctx := context.Background()

	out, err := d.Run(ctx, engine.ActionCreate, workspaceRequest("bad/name"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.Status != engine.StatusFailed || out.ErrorCode != engine.ErrorKindInvalidRequest {
		t.Errorf("Expected FAILED InvalidRequest, got %s %s", out.Status, out.ErrorCode)
	}
	if h.calls() != 0 {
		t.Errorf("Expected handler not to be invoked, got %d calls", h.calls())
	}

	invocations, err := store.ListInvocations(ctx, stores.InvocationFilter{})
	if err != nil {
		t.Fatalf("Failed to list invocations: %v", err)
	}
	if len(invocations) != 1 || invocations[0].Attempt != 0 {
		t.Errorf("Expected one preflight record, got %+v", invocations)
	}

	// Read is never checked.
	out, err = d.Run(ctx, engine.ActionRead, workspaceRequest("bad/name"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.Status != engine.StatusSuccess || h.calls() != 1 {
		t.Errorf("Expected Read to reach the handler, got %s after %d calls", out.Status, h.calls())
	}
}

func TestPrune(t *testing.T) {
	h := &scriptedHandler{}
	d, store, _ := newTestDriver(t, h, DefaultConfig())
	ctx := context.Background()

	if _, err := d.Run(ctx, engine.ActionRead, workspaceRequest("wal-1")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if n, err := d.Prune(ctx, 0); err != nil || n != 0 {
		t.Errorf("Expected zero retention to keep everything, got %d, %v", n, err)
	}

	d.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	n, err := d.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 pruned invocation, got %d", n)
	}

	invocations, _ := store.ListInvocations(ctx, stores.InvocationFilter{})
	if len(invocations) != 0 {
		t.Errorf("Expected empty log, got %d", len(invocations))
	}
}

func TestBackoffCap(t *testing.T) {
	d := New(&scriptedHandler{}, nil, DefaultConfig())

	for attempt := 0; attempt < 12; attempt++ {
		delay := d.backoff(attempt, inProgress(1))
		if delay > time.Minute+time.Minute/8 {
			t.Errorf("Attempt %d: delay %s exceeds cap", attempt, delay)
		}
		if delay < time.Second {
			t.Errorf("Attempt %d: delay %s below base", attempt, delay)
		}
	}
}
