package telemetry

import (
	stderrors "errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/bridge"
)

// DefaultNamespace is the metrics namespace used when none is set.
const DefaultNamespace = "nativebridge"

// MetricsConfig configures Metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "nativebridge").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for flush and poll durations.
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
		if namespace != "" {
			c.Namespace = namespace
		}
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

// frameBuckets cover flushes from tens of microseconds up to a few
// frames at 60Hz.
var frameBuckets = []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: DefaultNamespace,
		Buckets:   frameBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is a bridge.Observer that records Prometheus metrics. Create
// one per registry; registering twice on the same registry panics.
type Metrics struct {
	flushes       *prometheus.CounterVec
	flushDuration prometheus.Histogram
	flushErrors   *prometheus.CounterVec
	snapshots     prometheus.Counter
	batchOps      prometheus.Counter
	listenOps     prometheus.Counter
	rejected      prometheus.Counter
	frameCommands prometheus.Gauge
	framePayload  prometheus.Gauge

	events       *prometheus.CounterVec
	pollDuration prometheus.Histogram
	dispatch     *prometheus.CounterVec
}

var _ bridge.Observer = (*Metrics)(nil)

// NewMetrics creates and registers the bridge metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}
	histogram := func(name, help string) prometheus.Histogram {
		return factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		})
	}

	return &Metrics{
		flushes:       counterVec("flushes_total", "Total number of flushes by result", "result"),
		flushDuration: histogram("flush_duration_seconds", "Flush duration in seconds"),
		flushErrors:   counterVec("flush_errors_total", "Failed flushes by error code", "code"),
		snapshots:     counter("snapshots_total", "Total number of full snapshots sent"),
		batchOps:      counter("batch_ops_total", "Total number of ops sent in incremental batches"),
		listenOps:     counter("listen_ops_total", "Total number of listen ops sent"),
		rejected:      counter("batches_rejected_total", "Total number of batches the renderer rejected"),
		frameCommands: gauge("frame_commands", "Draw commands in the last committed frame"),
		framePayload:  gauge("frame_payload_bytes", "Payload bytes in the last committed frame"),

		events:       counterVec("events_total", "Ring events by outcome", "outcome"),
		pollDuration: histogram("poll_duration_seconds", "Duration of polls that found pending events"),
		dispatch:     counterVec("dispatch_units_total", "Dispatch units by outcome", "outcome"),
	}
}

// ObserveFlush implements bridge.Observer.
func (m *Metrics) ObserveFlush(s bridge.FlushStats) {
	m.flushDuration.Observe(s.Duration.Seconds())
	if s.Err != nil {
		m.flushes.WithLabelValues("error").Inc()
		m.flushErrors.WithLabelValues(errorCode(s.Err)).Inc()
		return
	}
	m.flushes.WithLabelValues("ok").Inc()
	if s.Snapshot {
		m.snapshots.Inc()
	}
	if s.Rejected {
		m.rejected.Inc()
	}
	m.batchOps.Add(float64(s.Ops))
	m.listenOps.Add(float64(s.Listens))
	m.frameCommands.Set(float64(s.Commands))
	m.framePayload.Set(float64(s.PayloadBytes))
}

// ObservePoll implements bridge.Observer.
func (m *Metrics) ObservePoll(s bridge.PollStats) {
	if s.Pending > 0 {
		m.pollDuration.Observe(s.Duration.Seconds())
	}
	m.events.WithLabelValues("dispatched").Add(float64(s.Dispatched))
	m.events.WithLabelValues("skipped").Add(float64(s.Skipped))
	m.events.WithLabelValues("dropped_event").Add(float64(s.DroppedEvents))
	m.events.WithLabelValues("dropped_detail").Add(float64(s.DroppedDetails))
}

// ObserveDispatch implements bridge.Observer.
func (m *Metrics) ObserveDispatch(s bridge.DispatchStats) {
	m.dispatch.WithLabelValues("ran").Add(float64(s.Ran))
	m.dispatch.WithLabelValues("failed").Add(float64(s.Failed))
	m.dispatch.WithLabelValues("panicked").Add(float64(s.Panics))
	m.dispatch.WithLabelValues("dropped").Add(float64(s.Dropped))
}

// errorCode keeps error labels to the registered codes.
func errorCode(err error) string {
	var be *errors.BridgeError
	if stderrors.As(err, &be) && be.Code != "" {
		return be.Code
	}
	return "unknown"
}
