package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// polling and reconciliation loops.
type Metrics struct {
	PollsTotal     *prometheus.CounterVec // labels: service, outcome={success,failure}
	PollDuration   *prometheus.HistogramVec
	ActiveMessages *prometheus.GaugeVec
	CoordinatorUp  *prometheus.GaugeVec

	// Reconciliation metrics.
	EntityOps          *prometheus.CounterVec // labels: service, op={add,remove}
	EntityOpErrors     *prometheus.CounterVec // labels: service
	RegisteredEntities *prometheus.GaugeVec   // labels: service, domain

	// Entity-event sink metrics.
	EventsPublished    prometheus.Counter
	EventPublishErrors prometheus.Counter

	// Weathercam image metrics.
	ImageFetches *prometheus.CounterVec // labels: outcome={success,denied,error,stale}
}

func newMetrics() *Metrics {
	return &Metrics{
		PollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_sync",
			Name:      "polls_total",
			Help:      "Poll cycles by service and outcome.",
		}, []string{"service", "outcome"}),
		PollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "traffic_sync",
			Name:      "poll_duration_seconds",
			Help:      "Duration of a complete fetch-filter-publish cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"service"}),
		ActiveMessages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "traffic_sync",
			Name:      "active_messages",
			Help:      "Traffic messages in the last successful filtered fetch.",
		}, []string{"service"}),
		CoordinatorUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "traffic_sync",
			Name:      "coordinator_running",
			Help:      "1 while the service's polling loop is active.",
		}, []string{"service"}),
		EntityOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_sync",
			Name:      "entity_ops_total",
			Help:      "Entity registry add/remove operations by service.",
		}, []string{"service", "op"}),
		EntityOpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_sync",
			Name:      "entity_op_errors_total",
			Help:      "Failed entity registry operations (logged and skipped).",
		}, []string{"service"}),
		RegisteredEntities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "traffic_sync",
			Name:      "registered_entities",
			Help:      "Entities currently in the registry.",
		}, []string{"service", "domain"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "traffic_sync",
			Name:      "entity_events_published_total",
			Help:      "Entity lifecycle events written to the Kafka sink.",
		}),
		EventPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "traffic_sync",
			Name:      "entity_event_publish_errors_total",
			Help:      "Failed entity-event publishes.",
		}),
		ImageFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_sync",
			Name:      "image_fetches_total",
			Help:      "Weathercam image fetches by outcome.",
		}, []string{"outcome"}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PollsTotal,
		m.PollDuration,
		m.ActiveMessages,
		m.CoordinatorUp,
		m.EntityOps,
		m.EntityOpErrors,
		m.RegisteredEntities,
		m.EventsPublished,
		m.EventPublishErrors,
		m.ImageFetches,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
