package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Telemetry bundles logging, tracing and metrics.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Config  *Config
}

// telemetryContextKey is the context key for telemetry instances.
type telemetryContextKey struct{}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Config:  cfg,
	}, nil
}

// NewNop returns telemetry that discards logs, spans and metrics.
func NewNop() *Telemetry {
	cfg := DefaultConfig()
	tracer, _ := NewTracer(TracingConfig{}, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	metrics, _ := NewMetrics(MetricsConfig{})
	return &Telemetry{
		Logger:  NewNopLogger(),
		Tracer:  tracer,
		Metrics: metrics,
		Config:  cfg,
	}
}

// WithContext adds the telemetry instance to the context. A logger already
// carried by ctx is kept; otherwise the telemetry logger is added.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, telemetryContextKey{}, t)
	if _, ok := ctx.Value(loggerContextKey{}).(*Logger); !ok {
		ctx = t.Logger.WithContext(ctx)
	}
	return ctx
}

// FromTelemetryContext retrieves the telemetry instance from the context.
// If no telemetry is found, it returns nil.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return nil
}

// Shutdown gracefully shuts down all telemetry components.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	// Metrics server keeps serving until process exit.
	return t.Tracer.Shutdown(ctx)
}

// StartMetricsServer starts the metrics HTTP server if metrics are enabled.
func (t *Telemetry) StartMetricsServer() error {
	return t.Metrics.StartMetricsServer()
}

// InstrumentedContext carries the span, logger and timer of one handler
// invocation. Ctx holds the span and Logger for downstream calls.
type InstrumentedContext struct {
	Ctx    context.Context
	Span   trace.Span
	Logger *Logger
	Timer  *Timer
}

// StartOperation begins an instrumented handler invocation for workspace.
// The logger is derived from the one carried by ctx. Without telemetry in
// ctx the span is a no-op.
func StartOperation(ctx context.Context, operation, workspace string) *InstrumentedContext {
	logger := FromContext(ctx).WithOperation(operation)
	if workspace != "" {
		logger = logger.WithWorkspace(workspace)
	}

	span := trace.SpanFromContext(context.Background())
	if tel := FromTelemetryContext(ctx); tel != nil {
		ctx, span = tel.Tracer.StartHandlerSpan(ctx, operation, workspace)
		if id := TraceID(ctx); id != "" {
			logger = logger.WithField("trace_id", id).WithField("span_id", SpanID(ctx))
		}
	}

	return &InstrumentedContext{
		Ctx:    logger.WithContext(ctx),
		Span:   span,
		Logger: logger,
		Timer:  NewTimer(),
	}
}

// End finishes the invocation, marking the span failed when err is set.
func (ic *InstrumentedContext) End(err error) {
	if err != nil {
		RecordError(ic.Span, err)
	} else {
		RecordSuccess(ic.Span)
	}
	ic.Span.End()
}
