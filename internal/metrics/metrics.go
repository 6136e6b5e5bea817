// Package metrics exposes checkout and fulfillment counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checkout outcomes.
const (
	OutcomeSucceeded       = "succeeded"
	OutcomePaymentFailed   = "payment_failed"
	OutcomeDraftRejected   = "draft_rejected"
	OutcomeFulfillmentFail = "fulfillment_failed"
)

// Metrics holds the service collectors and their registry.
type Metrics struct {
	registry *prometheus.Registry

	Checkouts        *prometheus.CounterVec
	FulfillmentSteps *prometheus.CounterVec
	PendingTasks     prometheus.Gauge
	Lookups          *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giftspa",
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		FulfillmentSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giftspa",
			Name:      "fulfillment_steps_total",
			Help:      "Fulfillment step executions by step and result.",
		}, []string{"step", "result"}),
		PendingTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "giftspa",
			Name:      "fulfillment_pending_tasks",
			Help:      "Fulfillment tasks waiting for a retry after the last sweep.",
		}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giftspa",
			Name:      "retrieval_lookups_total",
			Help:      "Gift card retrieval lookups by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.Checkouts,
		m.FulfillmentSteps,
		m.PendingTasks,
		m.Lookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// CheckoutOutcome counts one checkout. Nil receivers are ignored.
func (m *Metrics) CheckoutOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(outcome).Inc()
}

// FulfillmentStep counts one step execution.
func (m *Metrics) FulfillmentStep(step string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.FulfillmentSteps.WithLabelValues(step, result).Inc()
}

// SetPending records the pending task count.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.PendingTasks.Set(float64(n))
}

// Lookup counts one retrieval lookup.
func (m *Metrics) Lookup(found bool) {
	if m == nil {
		return
	}
	result := "not_found"
	if found {
		result = "found"
	}
	m.Lookups.WithLabelValues(result).Inc()
}
