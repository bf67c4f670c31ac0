package telemetry

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/klinecore/pkg/features/resource"
	"github.com/vango-dev/klinecore/pkg/reactive"
	"github.com/vango-dev/klinecore/pkg/reconcile"
)

// MetricsConfig configures Metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "klinecore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for flush and fetch durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures Metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "klinecore",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics records Prometheus metrics. Registering two Metrics with the same
// namespace on one registry panics.
type Metrics struct {
	flushesTotal      *prometheus.CounterVec
	flushDuration     prometheus.Histogram
	computationsTotal prometheus.Counter
	fetchesStarted    *prometheus.CounterVec
	fetchesTotal      *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
	fetchesInFlight   prometheus.Gauge
	reconcileOps      *prometheus.CounterVec
	bridgeClients     prometheus.Gauge
	bridgeFrames      prometheus.Counter
	bridgeErrors      *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		flushesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Total number of reactive flushes",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Reactive flush duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		computationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "computations_total",
			Help:        "Total number of memo, computed and effect runs",
			ConstLabels: config.ConstLabels,
		}),

		fetchesStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fetches_started_total",
			Help:        "Total number of resource requests started",
			ConstLabels: config.ConstLabels,
		}, []string{"resource"}),

		fetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fetches_total",
			Help:        "Total number of finished resource requests",
			ConstLabels: config.ConstLabels,
		}, []string{"resource", "status"}),

		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fetch_duration_seconds",
			Help:        "Resource request duration in seconds, retries included",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"resource"}),

		fetchesInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fetches_in_flight",
			Help:        "Number of resource requests not yet finished",
			ConstLabels: config.ConstLabels,
		}),

		reconcileOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reconcile_ops_total",
			Help:        "Total number of reconcile ops by list and kind",
			ConstLabels: config.ConstLabels,
		}, []string{"list", "op"}),

		bridgeClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bridge_clients",
			Help:        "Number of connected renderers",
			ConstLabels: config.ConstLabels,
		}),

		bridgeFrames: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bridge_frames_total",
			Help:        "Total number of frames written to renderers",
			ConstLabels: config.ConstLabels,
		}),

		bridgeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bridge_errors_total",
			Help:        "Total renderer connection errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// FlushCompleted implements reactive.Observer.
func (m *Metrics) FlushCompleted(s reactive.FlushStats) {
	status := "ok"
	if s.Err != nil {
		status = categorizeFlushError(s.Err)
	}
	m.flushesTotal.WithLabelValues(status).Inc()
	m.flushDuration.Observe(s.Duration.Seconds())
	m.computationsTotal.Add(float64(s.Computations))
}

// FetchStarted implements resource.Observer.
func (m *Metrics) FetchStarted(name string) {
	m.fetchesStarted.WithLabelValues(name).Inc()
	m.fetchesInFlight.Inc()
}

// FetchCompleted implements resource.Observer.
func (m *Metrics) FetchCompleted(s resource.FetchStats) {
	m.fetchesInFlight.Dec()
	m.fetchesTotal.WithLabelValues(s.Name, fetchStatus(s)).Inc()
	m.fetchDuration.WithLabelValues(s.Name).Observe(s.Duration.Seconds())
}

// RecordOps counts reconcile ops for the named list.
func (m *Metrics) RecordOps(list string, kind reconcile.OpKind, n int) {
	m.reconcileOps.WithLabelValues(list, kind.String()).Add(float64(n))
}

// ClientConnected records a renderer connecting.
func (m *Metrics) ClientConnected() {
	m.bridgeClients.Inc()
}

// ClientDisconnected records a renderer leaving.
func (m *Metrics) ClientDisconnected() {
	m.bridgeClients.Dec()
}

// FramesSent records frames written to renderers.
func (m *Metrics) FramesSent(n int) {
	m.bridgeFrames.Add(float64(n))
}

// BridgeError records a renderer error of the given type, such as "upgrade",
// "write" or "slow".
func (m *Metrics) BridgeError(kind string) {
	m.bridgeErrors.WithLabelValues(kind).Inc()
}

// categorizeFlushError keeps the status label low-cardinality.
func categorizeFlushError(err error) string {
	var runaway *reactive.RunawayUpdateError
	var comp *reactive.ComputationError
	switch {
	case errors.As(err, &runaway):
		return "runaway"
	case errors.As(err, &comp):
		return "computation_error"
	default:
		return "error"
	}
}

func fetchStatus(s resource.FetchStats) string {
	switch {
	case s.Superseded:
		return "superseded"
	case s.Err == nil:
		return "ok"
	case errors.Is(s.Err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(s.Err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
