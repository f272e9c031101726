// Package metrics provides Prometheus-compatible instrumentation for the
// runtime: active/changed node counts, tick latency, guest traps, and
// queue back-pressure. Grounded on the teacher's `graph/metrics.go`
// PrometheusMetrics construction pattern (promauto factory over a supplied
// registry), renamespaced to "arc" and re-labeled for the stratified
// scheduler and SPSC queues instead of the teacher's DAG run/node labels.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the runtime updates during a
// tick. Construct once per Runtime with New and pass nil to use the
// default global registry, or a dedicated *prometheus.Registry for test
// isolation.
type Metrics struct {
	activeNodes  prometheus.Gauge
	changedNodes prometheus.Gauge
	tickLatency  prometheus.Histogram
	nodeTraps    *prometheus.CounterVec
	nodeErrors   *prometheus.CounterVec
	queueDepth   *prometheus.GaugeVec
	queueDropped *prometheus.CounterVec
	breakerTrips *prometheus.CounterVec
}

// New constructs and registers every Arc runtime metric against registry.
// A nil registry registers against prometheus.DefaultRegisterer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		activeNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "arc",
			Name:      "active_nodes",
			Help:      "Number of nodes registered with the scheduler",
		}),
		changedNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "arc",
			Name:      "changed_nodes",
			Help:      "Number of nodes marked changed during the most recent tick",
		}),
		tickLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "arc",
			Name:      "tick_latency_us",
			Help:      "Wall-clock duration of one runtime tick, in microseconds",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
		}),
		nodeTraps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arc",
			Name:      "node_traps_total",
			Help:      "Cumulative guest WASM traps, by node key",
		}, []string{"node"}),
		nodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arc",
			Name:      "node_errors_total",
			Help:      "Cumulative per-node execution errors, by node key",
		}, []string{"node"}),
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "arc",
			Name:      "queue_depth",
			Help:      "Current depth of an SPSC queue",
		}, []string{"queue"}),
		queueDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arc",
			Name:      "queue_dropped_total",
			Help:      "Cumulative pushes rejected because a queue was full",
		}, []string{"queue"}),
		breakerTrips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arc",
			Name:      "breaker_trips_total",
			Help:      "Cumulative breaker trips (cooperative shutdown), by breaker name",
		}, []string{"breaker"}),
	}
}

// SetActiveNodes records the total node count.
func (m *Metrics) SetActiveNodes(n int) { m.activeNodes.Set(float64(n)) }

// SetChangedNodes records how many nodes were marked changed this tick.
func (m *Metrics) SetChangedNodes(n int) { m.changedNodes.Set(float64(n)) }

// ObserveTick records one tick's wall-clock duration in microseconds.
func (m *Metrics) ObserveTick(us float64) { m.tickLatency.Observe(us) }

// IncNodeTrap records one guest trap for nodeKey.
func (m *Metrics) IncNodeTrap(nodeKey string) { m.nodeTraps.WithLabelValues(nodeKey).Inc() }

// IncNodeError records one per-node execution error for nodeKey.
func (m *Metrics) IncNodeError(nodeKey string) { m.nodeErrors.WithLabelValues(nodeKey).Inc() }

// SetQueueDepth records queueName's current depth.
func (m *Metrics) SetQueueDepth(queueName string, depth int) {
	m.queueDepth.WithLabelValues(queueName).Set(float64(depth))
}

// IncQueueDropped records one rejected push for queueName.
func (m *Metrics) IncQueueDropped(queueName string) {
	m.queueDropped.WithLabelValues(queueName).Inc()
}

// IncBreakerTrip records one trip of the named breaker.
func (m *Metrics) IncBreakerTrip(breakerName string) {
	m.breakerTrips.WithLabelValues(breakerName).Inc()
}
