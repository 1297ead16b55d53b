// Package metrics exposes Prometheus collectors for reminder sweeps,
// notification dispatch and slot generation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "calendar"

// Collectors implements the observer interfaces of the application and
// notification packages on top of one registry.
type Collectors struct {
	registry *prometheus.Registry

	sweepRuns     *prometheus.CounterVec
	sweepMatched  *prometheus.CounterVec
	sweepDuration *prometheus.HistogramVec
	dispatched    *prometheus.CounterVec
	slotsCreated  prometheus.Counter
}

// New registers every collector, plus the Go runtime and process collectors,
// on a fresh registry.
func New() *Collectors {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Collectors{
		registry: registry,
		sweepRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Reminder sweep runs by job and outcome.",
		}, []string{"job", "outcome"}),
		sweepMatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_matched_slots_total",
			Help:      "Slots matched by reminder sweeps.",
		}, []string{"job"}),
		sweepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time spent in a reminder sweep.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		dispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications handed to the dispatcher by kind and outcome.",
		}, []string{"kind", "outcome"}),
		slotsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_materialized_total",
			Help:      "Slots written by event creation and regeneration.",
		}),
	}
}

// SweepCompleted records one sweep run.
func (c *Collectors) SweepCompleted(job string, matched int, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.sweepRuns.WithLabelValues(job, outcome).Inc()
	c.sweepMatched.WithLabelValues(job).Add(float64(matched))
	c.sweepDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// Dispatched records one dispatcher outcome.
func (c *Collectors) Dispatched(kind, outcome string) {
	c.dispatched.WithLabelValues(kind, outcome).Inc()
}

// SlotsMaterialized records a batch of created slots.
func (c *Collectors) SlotsMaterialized(count int) {
	c.slotsCreated.Add(float64(count))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
