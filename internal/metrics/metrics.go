// Package metrics defines the Prometheus collectors of the events pipeline
// and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Skip reasons recorded on events_skipped_total
const (
	ReasonDecodeError       = "decode_error"
	ReasonUnrecognizedEvent = "unrecognized_event"
	ReasonStorageWrite      = "storage_write_error"
	ReasonStorageConnection = "storage_connection_error"
	ReasonPanic             = "panic"
)

// Collector receives pipeline measurements
type Collector interface {
	IncrementPolled()
	IncrementPersisted(collection string)
	IncrementSkipped(reason string)
	IncrementBrokerErrors(fatal bool)
	RecordPersistLatency(d time.Duration)
	SetState(state int)
}

// Metrics holds the Prometheus collectors for the pipeline
type Metrics struct {
	registry *prometheus.Registry

	EventsPolled    prometheus.Counter
	EventsPersisted *prometheus.CounterVec
	EventsSkipped   *prometheus.CounterVec
	BrokerErrors    *prometheus.CounterVec
	PersistDuration prometheus.Histogram
	PipelineState   prometheus.Gauge
}

// New creates the collectors and registers them on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EventsPolled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "events_polled_total",
				Help: "Total records received from the events topic.",
			},
		),
		EventsPersisted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_persisted_total",
				Help: "Total events inserted by collection.",
			},
			[]string{"collection"},
		),
		EventsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_skipped_total",
				Help: "Total records dropped by reason.",
			},
			[]string{"reason"},
		),
		BrokerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broker_errors_total",
				Help: "Total errors reported by the broker client.",
			},
			[]string{"fatal"},
		),
		PersistDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "persist_duration_seconds",
				Help:    "Latency of single document inserts in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		PipelineState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipeline_state",
				Help: "Lifecycle state (1=starting, 2=connecting broker, 3=connecting storage, 4=subscribed, 5=running, 6=draining, 7=closed).",
			},
		),
	}

	m.registry.MustRegister(
		m.EventsPolled,
		m.EventsPersisted,
		m.EventsSkipped,
		m.BrokerErrors,
		m.PersistDuration,
		m.PipelineState,
	)

	return m
}

func (m *Metrics) IncrementPolled() {
	m.EventsPolled.Inc()
}

func (m *Metrics) IncrementPersisted(collection string) {
	m.EventsPersisted.WithLabelValues(collection).Inc()
}

func (m *Metrics) IncrementSkipped(reason string) {
	m.EventsSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementBrokerErrors(fatal bool) {
	m.BrokerErrors.WithLabelValues(strconv.FormatBool(fatal)).Inc()
}

func (m *Metrics) RecordPersistLatency(d time.Duration) {
	m.PersistDuration.Observe(d.Seconds())
}

func (m *Metrics) SetState(state int) {
	m.PipelineState.Set(float64(state))
}

// Registry exposes the registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Noop discards all measurements
type Noop struct{}

func (Noop) IncrementPolled() {}
func (Noop) IncrementPersisted(string) {}
func (Noop) IncrementSkipped(string) {}
func (Noop) IncrementBrokerErrors(bool) {}
func (Noop) RecordPersistLatency(time.Duration) {}
func (Noop) SetState(int) {}
