// Package telemetry provides the observability stack of the workspace provider.
//
// It combines structured logging (zerolog), distributed tracing
// (OpenTelemetry) and metrics (Prometheus) behind a single Telemetry value
// that is built once at startup and injected into the lifecycle handlers and
// the host driver.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// Handlers wrap every invocation in StartOperation, which derives the
// logger from the context and starts the handler span:
//
//	ctx = logger.WithContext(tel.WithContext(ctx))
//	ic := telemetry.StartOperation(ctx, "AWS-EMR-WALWorkspace::Update", "orders")
//	defer ic.End(err)
//	telemetry.FromContext(ic.Ctx).Info("reconciling tags")
//
// # Metrics
//
// Metrics are registered on a private registry and exposed by
// StartMetricsServer on the configured listen address:
//
//   - walws_handler_invocations_total{operation,status,error_code}
//   - walws_handler_duration_seconds{operation}
//   - walws_remote_calls_total{api}, walws_remote_errors_total{api,kind}
//   - walws_retry_budget_remaining{operation}
//   - walws_tag_changes_total{direction}
//   - walws_host_attempts_total{action}, walws_host_pending_retries
//
// A disabled Metrics value is safe to use; every recorder is a no-op.
//
// For tests, NewNop returns telemetry that discards everything.
package telemetry
