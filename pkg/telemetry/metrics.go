package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the workspace provider.
type Metrics struct {
	config MetricsConfig

	// Handler metrics
	handlerInvocations *prometheus.CounterVec
	handlerDuration    *prometheus.HistogramVec

	// Remote API metrics
	remoteCalls    *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	remoteErrors   *prometheus.CounterVec

	// Reconciliation metrics
	retryBudget *prometheus.GaugeVec
	tagChanges  *prometheus.CounterVec

	// Host metrics
	hostAttempts   *prometheus.CounterVec
	pendingRetries prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// No-op instance: every Record method checks for nil collectors.
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		handlerInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handler_invocations_total",
				Help:      "Total number of lifecycle handler invocations by outcome",
			},
			[]string{"operation", "status", "error_code"},
		),
		handlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "handler_duration_seconds",
				Help:      "Duration of lifecycle handler invocations in seconds",
				Buckets:   buckets,
			},
			[]string{"operation"},
		),

		remoteCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_calls_total",
				Help:      "Total number of calls to the workspace service",
			},
			[]string{"api"},
		),
		remoteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_call_duration_seconds",
				Help:      "Duration of calls to the workspace service in seconds",
				Buckets:   buckets,
			},
			[]string{"api"},
		),
		remoteErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_errors_total",
				Help:      "Total number of failed calls to the workspace service by error kind",
			},
			[]string{"api", "kind"},
		),

		retryBudget: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "retry_budget_remaining",
				Help:      "Retry budget left after the most recent retryable classification",
			},
			[]string{"operation"},
		),
		tagChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tag_changes_total",
				Help:      "Total number of tags added or removed by Update",
			},
			[]string{"direction"},
		),

		hostAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "host_attempts_total",
				Help:      "Total number of handler invocations issued by the host driver",
			},
			[]string{"action"},
		),
		pendingRetries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "host_pending_retries",
				Help:      "Current number of operations waiting for re-invocation",
			},
		),
	}

	registry.MustRegister(
		m.handlerInvocations,
		m.handlerDuration,
		m.remoteCalls,
		m.remoteDuration,
		m.remoteErrors,
		m.retryBudget,
		m.tagChanges,
		m.hostAttempts,
		m.pendingRetries,
	)

	return m, nil
}

// Handler Metrics

// RecordHandlerInvocation records a completed handler invocation.
func (m *Metrics) RecordHandlerInvocation(operation, status, errorCode string, duration time.Duration) {
	if m == nil || m.handlerInvocations == nil {
		return
	}
	m.handlerInvocations.WithLabelValues(operation, status, errorCode).Inc()
	m.handlerDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Remote Metrics

// RecordRemoteCall records a call to the workspace service with its duration.
func (m *Metrics) RecordRemoteCall(api string, duration time.Duration) {
	if m == nil || m.remoteCalls == nil {
		return
	}
	m.remoteCalls.WithLabelValues(api).Inc()
	m.remoteDuration.WithLabelValues(api).Observe(duration.Seconds())
}

// RecordRemoteError records a failed call to the workspace service.
func (m *Metrics) RecordRemoteError(api, kind string) {
	if m == nil || m.remoteErrors == nil {
		return
	}
	m.remoteErrors.WithLabelValues(api, kind).Inc()
}

// Reconciliation Metrics

// SetRetryBudget records the budget left for an operation.
func (m *Metrics) SetRetryBudget(operation string, remaining int) {
	if m == nil || m.retryBudget == nil {
		return
	}
	m.retryBudget.WithLabelValues(operation).Set(float64(remaining))
}

// RecordTagChanges records the size of an applied tag diff.
func (m *Metrics) RecordTagChanges(added, removed int) {
	if m == nil || m.tagChanges == nil {
		return
	}
	m.tagChanges.WithLabelValues("add").Add(float64(added))
	m.tagChanges.WithLabelValues("remove").Add(float64(removed))
}

// Host Metrics

// RecordHostAttempt records one handler invocation issued by the host.
func (m *Metrics) RecordHostAttempt(action string) {
	if m == nil || m.hostAttempts == nil {
		return
	}
	m.hostAttempts.WithLabelValues(action).Inc()
}

// SetPendingRetries sets the number of operations waiting for re-invocation.
func (m *Metrics) SetPendingRetries(count float64) {
	if m == nil || m.pendingRetries == nil {
		return
	}
	m.pendingRetries.Set(count)
}

// Registry returns the metrics registry, or nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
