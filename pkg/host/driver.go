package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openfroyo/walworkspace/pkg/engine"
	"github.com/openfroyo/walworkspace/pkg/policy"
	"github.com/openfroyo/walworkspace/pkg/stores"
	"github.com/openfroyo/walworkspace/pkg/telemetry"
)

// Checker evaluates policies against a request before it is invoked.
type Checker interface {
	EvaluateRequest(ctx context.Context, action engine.Action, req *engine.Request) (*policy.PolicyResult, error)
}

// Config bounds how the driver re-invokes in-progress operations.
type Config struct {
	// MaxInvocations bounds the invocations of one operation, including the
	// first one.
	MaxInvocations int

	BackoffBase          time.Duration
	ThrottledBackoffBase time.Duration
	BackoffMax           time.Duration
}

// DefaultConfig returns the default driver configuration.
func DefaultConfig() Config {
	return Config{
		MaxInvocations:       10,
		BackoffBase:          time.Second,
		ThrottledBackoffBase: 5 * time.Second,
		BackoffMax:           time.Minute,
	}
}

// Driver plays the orchestration host for a handler: it invokes a verb,
// persists the returned reconciliation context and re-invokes until the
// outcome is terminal.
type Driver struct {
	handler engine.Handler
	store   stores.Store
	checker Checker
	cfg     Config
	tel     *telemetry.Telemetry
	logger  *telemetry.Logger

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

// Option configures a Driver.
type Option func(*Driver)

// WithChecker enables the policy preflight on Create and Update.
func WithChecker(c Checker) Option {
	return func(d *Driver) {
		d.checker = c
	}
}

// WithTelemetry sets the telemetry used for logs and metrics.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(d *Driver) {
		if t != nil {
			d.tel = t
		}
	}
}

// New creates a driver for handler backed by store.
func New(handler engine.Handler, store stores.Store, cfg Config, opts ...Option) *Driver {
	d := &Driver{
		handler: handler,
		store:   store,
		cfg:     cfg,
		tel:     telemetry.NewNop(),
		sleep:   sleepContext,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.cfg.MaxInvocations <= 0 {
		d.cfg.MaxInvocations = 1
	}
	d.logger = d.tel.Logger.NewComponentLogger("host-driver")
	return d
}

// Run drives one operation to a terminal outcome. A missing client request
// token is generated. The returned error reports host failures such as a
// broken store or a cancelled ctx; handler failures are in the outcome.
//
// When ctx is cancelled while waiting to re-invoke, the context stays
// persisted and Resume continues the operation later.
func (d *Driver) Run(ctx context.Context, action engine.Action, req *engine.Request) (*engine.Outcome, error) {
	r := engine.Request{}
	if req != nil {
		r = *req
	}
	if r.ClientRequestToken == "" {
		r.ClientRequestToken = uuid.NewString()
	}

	if out, err := d.preflight(ctx, action, &r); err != nil || out != nil {
		return out, err
	}

	return d.drive(ctx, action, &r, nil, 1, d.now())
}

// Resume continues every persisted operation whose re-invocation time has
// passed. Outcomes are keyed by client request token.
func (d *Driver) Resume(ctx context.Context) (map[string]*engine.Outcome, error) {
	due, err := d.store.DueContexts(ctx, d.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list due contexts: %w", err)
	}

	results := make(map[string]*engine.Outcome, len(due))
	for _, rec := range due {
		var req engine.Request
		if err := json.Unmarshal([]byte(rec.Request), &req); err != nil {
			return results, fmt.Errorf("failed to decode request %s: %w", rec.RequestToken, err)
		}
		req.ClientRequestToken = rec.RequestToken

		d.logger.WithRequestToken(rec.RequestToken).
			WithWorkspace(rec.Workspace).
			Infof("Resuming %s at attempt %d", rec.Action, rec.Attempt+1)

		rc := rec.Context
		out, err := d.drive(ctx, rec.Action, &req, &rc, rec.Attempt+1, rec.CreatedAt)
		if err != nil {
			return results, err
		}
		results[rec.RequestToken] = out
	}

	return results, nil
}

// Prune removes invocation records older than retention.
func (d *Driver) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	return d.store.PruneInvocations(ctx, d.now().Add(-retention))
}

func (d *Driver) preflight(ctx context.Context, action engine.Action, req *engine.Request) (*engine.Outcome, error) {
	if d.checker == nil || (action != engine.ActionCreate && action != engine.ActionUpdate) {
		return nil, nil
	}

	result, err := d.checker.EvaluateRequest(ctx, action, req)
	if err != nil {
		return nil, fmt.Errorf("policy evaluation failed: %w", err)
	}
	for _, w := range result.Warnings {
		d.logger.WithWorkspace(w.Workspace).WithField("policy", w.Policy).Warn(w.Message)
	}

	denied := result.Err()
	if denied == nil {
		return nil, nil
	}

	out := engine.Failed(req.Model(), engine.ErrorKindInvalidRequest, denied.Error())
	if err := d.record(ctx, action, req, nil, out, 0, 0); err != nil {
		return nil, err
	}
	return out, nil
}

// drive invokes action starting at attempt until the outcome is terminal,
// the invocation bound is reached or ctx is done.
func (d *Driver) drive(ctx context.Context, action engine.Action, req *engine.Request, rc *engine.ReconciliationContext, attempt int, createdAt time.Time) (*engine.Outcome, error) {
	token := req.ClientRequestToken
	logger := d.logger.WithRequestToken(token).WithWorkspace(req.Model().Name)

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	for {
		d.tel.Metrics.RecordHostAttempt(string(action))

		timer := telemetry.NewTimer()
		out := engine.Invoke(ctx, d.handler, action, req, rc)
		if err := d.record(ctx, action, req, rc, out, attempt, timer.Duration()); err != nil {
			return nil, err
		}

		if out.IsTerminal() {
			logger.Debugf("%s finished with %s after %d invocation(s)", action, out.Status, attempt)
			return out, d.forget(ctx, token)
		}

		if attempt >= d.cfg.MaxInvocations {
			logger.Warnf("%s still in progress after %d invocations", action, attempt)
			exhausted := engine.Failedf(out.Model, engine.ErrorKindGeneralServiceFailure,
				"operation did not complete after %d invocations: %s", attempt, out.Message)
			return exhausted, d.forget(ctx, token)
		}

		delay := d.backoff(attempt-1, out)
		next := engine.ContextOrNew(out.CallbackContext)

		rec := &stores.CallbackRecord{
			RequestToken:  token,
			Action:        action,
			Workspace:     req.Model().Name,
			Request:       string(payload),
			Context:       next,
			Attempt:       attempt,
			NextAttemptAt: d.now().Add(delay),
			CreatedAt:     createdAt,
		}
		if err := d.store.SaveContext(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to persist context: %w", err)
		}
		d.updatePending(ctx)

		logger.Infof("%s in progress (%s), re-invoking in %s with %d retries left", action, out.Message, delay, next.RetryAttempts)

		if err := d.sleep(ctx, delay); err != nil {
			return nil, err
		}

		rc = &next
		attempt++
	}
}

func (d *Driver) record(ctx context.Context, action engine.Action, req *engine.Request, rc *engine.ReconciliationContext, out *engine.Outcome, attempt int, dur time.Duration) error {
	budget := engine.ContextOrNew(rc).RetryAttempts
	if out.CallbackContext != nil {
		budget = out.CallbackContext.RetryAttempts
	}

	inv := &stores.Invocation{
		RequestToken:  req.ClientRequestToken,
		Action:        action,
		Workspace:     req.Model().Name,
		Status:        out.Status,
		ErrorCode:     out.ErrorCode,
		Message:       out.Message,
		RetryAttempts: budget,
		Attempt:       attempt,
		Duration:      dur,
		Timestamp:     d.now(),
	}
	if err := d.store.RecordInvocation(ctx, inv); err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}
	return nil
}

// forget drops the persisted context of a finished operation.
func (d *Driver) forget(ctx context.Context, token string) error {
	err := d.store.DeleteContext(ctx, token)
	if err != nil && !errors.Is(err, stores.ErrNotFound) {
		return fmt.Errorf("failed to delete context: %w", err)
	}
	d.updatePending(ctx)
	return nil
}

func (d *Driver) updatePending(ctx context.Context) {
	pending, err := d.store.ListContexts(ctx, -1, 0)
	if err != nil {
		d.logger.WithError(err).Warn("Failed to count pending contexts")
		return
	}
	d.tel.Metrics.SetPendingRetries(float64(len(pending)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
