package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/energizer-project/craftlure/internal/events"
)

const metricsNamespace = "craftlure"

// Metrics holds the Prometheus collectors for the decoy listener together
// with in-memory totals served by the stats endpoint. Nothing is persisted;
// counters restart with the process.
type Metrics struct {
	registry *prometheus.Registry

	connectionsTotal  prometheus.Counter
	activeConnections prometheus.Gauge
	connectionsDrop   *prometheus.CounterVec
	eventsTotal       *prometheus.CounterVec
	handleDuration    prometheus.Histogram
	deliveryFailures  *prometheus.CounterVec

	startedAt     time.Time
	accepted      atomic.Int64
	dropped       atomic.Int64
	statusProbes  atomic.Int64
	loginAttempts atomic.Int64
}

// Stats is a snapshot of the in-memory totals.
type Stats struct {
	StartedAt     time.Time `json:"started_at"`
	UptimeSec     int64     `json:"uptime_sec"`
	Accepted      int64     `json:"connections_accepted"`
	Dropped       int64     `json:"connections_dropped"`
	StatusProbes  int64     `json:"status_probes"`
	LoginAttempts int64     `json:"login_attempts"`
}

// NewMetrics creates the collectors on a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)

	return &Metrics{
		registry:  reg,
		startedAt: time.Now(),

		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connections_total",
			Help:      "Total number of accepted decoy connections",
		}),
		activeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_connections",
			Help:      "Number of decoy connections currently being handled",
		}),
		connectionsDrop: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connections_dropped_total",
			Help:      "Connections closed without producing an event, by reason",
		}, []string{"reason"}),
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_total",
			Help:      "Connection events produced, by kind",
		}, []string{"kind"}),
		handleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "handle_duration_seconds",
			Help:      "Time spent handling one decoy connection",
			Buckets:   prometheus.DefBuckets,
		}),
		deliveryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "delivery_failures_total",
			Help:      "Failed event deliveries, by sink",
		}, []string{"sink"}),
	}
}

// Registry returns the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ConnectionOpened records an accepted connection.
func (m *Metrics) ConnectionOpened() {
	m.accepted.Add(1)
	m.connectionsTotal.Inc()
	m.activeConnections.Inc()
}

// ConnectionClosed records the end of a connection's handling.
// An empty reason means the connection produced an event.
func (m *Metrics) ConnectionClosed(duration time.Duration, reason string) {
	m.activeConnections.Dec()
	m.handleDuration.Observe(duration.Seconds())
	if reason != "" {
		m.dropped.Add(1)
		m.connectionsDrop.WithLabelValues(reason).Inc()
	}
}

// DeliveryFailed records a failed delivery to a sink.
func (m *Metrics) DeliveryFailed(sink string) {
	m.deliveryFailures.WithLabelValues(sink).Inc()
}

// OnConnectionEvent is an EventBus handler counting produced events.
func (m *Metrics) OnConnectionEvent(ctx context.Context, event events.Event) error {
	ce, ok := event.Payload.(events.ConnectionEvent)
	if !ok {
		return nil
	}

	switch ce.Kind {
	case events.KindStatusProbe:
		m.statusProbes.Add(1)
	case events.KindLoginAttempt:
		m.loginAttempts.Add(1)
	}
	m.eventsTotal.WithLabelValues(ce.Kind.String()).Inc()
	return nil
}

// Snapshot returns the current in-memory totals.
func (m *Metrics) Snapshot() Stats {
	return Stats{
		StartedAt:     m.startedAt,
		UptimeSec:     int64(time.Since(m.startedAt).Seconds()),
		Accepted:      m.accepted.Load(),
		Dropped:       m.dropped.Load(),
		StatusProbes:  m.statusProbes.Load(),
		LoginAttempts: m.loginAttempts.Load(),
	}
}
