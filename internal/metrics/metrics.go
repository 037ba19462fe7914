// Package metrics exposes Prometheus counters for the playback coordinator.
// All methods are nil-safe so components can run without metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reelfeed"

// Metrics groups the coordinator counters. Labels are kept low-cardinality:
// surface kind and input source, never item ids.
type Metrics struct {
	registry *prometheus.Registry

	navAccepted   *prometheus.CounterVec
	navDropped    *prometheus.CounterVec
	activations   *prometheus.CounterVec
	playErrors    *prometheus.CounterVec
	staleEvents   *prometheus.CounterVec
	persistWrites *prometheus.CounterVec
	persistErrors *prometheus.CounterVec
}

// New creates and registers the counters on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		navAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_accepted_total",
			Help:      "Navigation commands accepted by the router.",
		}, []string{"surface", "source"}),
		navDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_dropped_total",
			Help:      "Navigation commands dropped while the cooldown lock was held.",
		}, []string{"surface", "source"}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activations_total",
			Help:      "Items bound to the playback slot.",
		}, []string{"surface"}),
		playErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_errors_total",
			Help:      "Recoverable playback errors (blocked autoplay, decode stalls).",
		}, []string{"surface"}),
		staleEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_events_total",
			Help:      "Resource callbacks ignored because their item was no longer active.",
		}, []string{"surface"}),
		persistWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_writes_total",
			Help:      "Full-map persistence writes.",
		}, []string{"namespace"}),
		persistErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_errors_total",
			Help:      "Persistence reads or writes that failed and were degraded to empty/no-op.",
		}, []string{"namespace"}),
	}
	m.registry.MustRegister(
		m.navAccepted, m.navDropped, m.activations, m.playErrors,
		m.staleEvents, m.persistWrites, m.persistErrors,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) NavAccepted(surface, source string) {
	if m != nil {
		m.navAccepted.WithLabelValues(surface, source).Inc()
	}
}

func (m *Metrics) NavDropped(surface, source string) {
	if m != nil {
		m.navDropped.WithLabelValues(surface, source).Inc()
	}
}

func (m *Metrics) Activation(surface string) {
	if m != nil {
		m.activations.WithLabelValues(surface).Inc()
	}
}

func (m *Metrics) PlaybackError(surface string) {
	if m != nil {
		m.playErrors.WithLabelValues(surface).Inc()
	}
}

func (m *Metrics) StaleEvent(surface string) {
	if m != nil {
		m.staleEvents.WithLabelValues(surface).Inc()
	}
}

func (m *Metrics) PersistWrite(ns string) {
	if m != nil {
		m.persistWrites.WithLabelValues(ns).Inc()
	}
}

func (m *Metrics) PersistError(ns string) {
	if m != nil {
		m.persistErrors.WithLabelValues(ns).Inc()
	}
}
