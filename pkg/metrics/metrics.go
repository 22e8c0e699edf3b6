// Package metrics provides Prometheus instrumentation for the LWM2M client.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lwm2m-go/lwm2m-client/pkg/store"
	"github.com/lwm2m-go/lwm2m-client/pkg/wire"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "lwm2m_client"

// Metrics holds all Prometheus metrics for the client.
type Metrics struct {
	registry *prometheus.Registry

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Store metrics
	StoreEvents *prometheus.CounterVec
	Resources   prometheus.Gauge

	// Client metrics
	StateChanges  *prometheus.CounterVec
	LastHeartbeat prometheus.Gauge
}

// New creates a Metrics instance registered on its own registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of answered requests",
			},
			[]string{"command", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request handling duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"command"},
		),
		StoreEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_events_total",
				Help:      "Total number of store events",
			},
			[]string{"type", "origin"},
		),
		Resources: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "resources",
				Help:      "Number of live resources in the store",
			},
		),
		StateChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "state_changes_total",
				Help:      "Total number of client state transitions by target state",
			},
			[]string{"state"},
		),
		LastHeartbeat: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_heartbeat_timestamp_seconds",
				Help:      "Unix time of the last transport heartbeat",
			},
		),
	}
}

// ObserveRequest records one answered request.
func (m *Metrics) ObserveRequest(cmd wire.Command, status wire.Status, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(cmd.String(), status.String()).Inc()
	m.RequestDuration.WithLabelValues(cmd.String()).Observe(elapsed.Seconds())
}

// ObserveEvent records a store event.
func (m *Metrics) ObserveEvent(e store.Event) {
	origin := "local"
	if e.Remote {
		origin = "remote"
	}
	m.StoreEvents.WithLabelValues(e.Type.String(), origin).Inc()
}

// ObserveState records a client state transition.
func (m *Metrics) ObserveState(state string) {
	m.StateChanges.WithLabelValues(state).Inc()
}

// ObserveHeartbeat records the time of a heartbeat.
func (m *Metrics) ObserveHeartbeat(at time.Time) {
	m.LastHeartbeat.Set(float64(at.UnixNano()) / 1e9)
}

// SetResources sets the live resource gauge.
func (m *Metrics) SetResources(n int) {
	m.Resources.Set(float64(n))
}

// Registry returns the registry holding the client metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
