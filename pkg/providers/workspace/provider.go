package workspace

import (
	"context"

	"github.com/openfroyo/walworkspace/pkg/engine"
	"github.com/openfroyo/walworkspace/pkg/telemetry"
)

// Client is the remote workspace service as the handlers see it.
// *emrwal.Client satisfies it.
type Client interface {
	CreateWorkspace(ctx context.Context, name string, tags []engine.Tag) error
	DeleteWorkspace(ctx context.Context, name string) error
	ListWorkspaces(ctx context.Context, maxResults int32, nextToken *string) ([]string, *string, error)
	ListTagsForResource(ctx context.Context, arn string) ([]engine.Tag, error)
	TagResource(ctx context.Context, arn string, tags []engine.Tag) error
	UntagResource(ctx context.Context, arn string, keys []string) error
}

// Provider implements the lifecycle handlers of the workspace resource.
type Provider struct {
	client Client
	tel    *telemetry.Telemetry
	logger *telemetry.Logger
}

var _ engine.Handler = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithTelemetry sets the telemetry used for logs, spans and metrics.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(p *Provider) {
		if tel != nil {
			p.tel = tel
		}
	}
}

// New creates a provider calling client.
func New(client Client, opts ...Option) *Provider {
	p := &Provider{
		client: client,
		tel:    telemetry.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.tel.Logger.NewComponentLogger("workspace-provider")
	return p
}

// invocation carries the instrumentation of one handler call.
type invocation struct {
	*telemetry.InstrumentedContext
	op engine.Operation
}

// begin starts the span, timer and logger of a handler call. The provider's
// telemetry and logger travel in the returned context so remote calls log
// with the invocation's fields.
func (p *Provider) begin(ctx context.Context, op engine.Operation, req *engine.Request) *invocation {
	logger := p.logger
	if req != nil && req.ClientRequestToken != "" {
		logger = logger.WithRequestToken(req.ClientRequestToken)
	}
	ctx = logger.WithContext(p.tel.WithContext(ctx))

	ic := telemetry.StartOperation(ctx, string(op), req.Model().Name)
	ic.Logger.Debug("handler invoked")
	return &invocation{InstrumentedContext: ic, op: op}
}

// finish records the outcome and ends the span.
func (p *Provider) finish(inv *invocation, out *engine.Outcome) *engine.Outcome {
	p.tel.Metrics.RecordHandlerInvocation(string(inv.op), string(out.Status), string(out.ErrorCode), inv.Timer.Duration())
	inv.Span.SetAttributes(telemetry.AttrOutcomeStatus.String(string(out.Status)))

	var err error
	switch out.Status {
	case engine.StatusFailed:
		err = outcomeError{out}
		inv.Span.SetAttributes(telemetry.AttrErrorCode.String(string(out.ErrorCode)))
		inv.Logger.Zerolog().Warn().
			Str("error_code", string(out.ErrorCode)).
			Str("status", string(out.Status)).
			Msg(out.Message)
	case engine.StatusInProgress:
		inv.Span.SetAttributes(telemetry.AttrRetryBudget.Int(out.CallbackContext.RetryAttempts))
		inv.Logger.Zerolog().Info().
			Int("retry_attempts", out.CallbackContext.RetryAttempts).
			Msg("retryable failure, requesting re-invocation")
	default:
		inv.Logger.Debug("handler succeeded")
	}
	inv.End(err)
	return out
}

// classify routes a remote failure through the classifier.
func (p *Provider) classify(inv *invocation, err error, rc *engine.ReconciliationContext, model *engine.ResourceModel) *engine.Outcome {
	c := engine.Classify(inv.op, err, engine.ContextOrNew(rc))
	if c.Retry() {
		p.tel.Metrics.SetRetryBudget(string(inv.op), c.Context.RetryAttempts)
	}
	return c.Outcome(model)
}

// call instruments one remote call.
func (p *Provider) call(ctx context.Context, api string, fn func(context.Context) error) error {
	ctx, span := p.tel.Tracer.StartRemoteSpan(ctx, api)
	defer span.End()

	timer := telemetry.NewTimer()
	err := fn(ctx)
	p.tel.Metrics.RecordRemoteCall(api, timer.Duration())

	if err != nil {
		kind := engine.KindOf(err)
		span.SetAttributes(telemetry.AttrErrorKind.String(string(kind)))
		telemetry.RecordError(span, err)
		p.tel.Metrics.RecordRemoteError(api, string(kind))
		telemetry.FromContext(ctx).WithAPI(api).WithError(err).
			Zerolog().Debug().Str("error_kind", string(kind)).Msg("remote call failed")
		return err
	}
	telemetry.RecordSuccess(span)
	return nil
}

// outcomeError adapts a failed outcome to the error interface for span recording.
type outcomeError struct {
	out *engine.Outcome
}

func (e outcomeError) Error() string {
	return string(e.out.ErrorCode) + ": " + e.out.Message
}
