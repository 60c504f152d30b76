// Package metrics exposes engine activity as Prometheus metrics. The
// collector implements grid.Observer and is attached with
// grid.WithObserver (or world.WithRegistryOption).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vk/lazygrid/grid"
)

// Collector holds all Prometheus metrics for one registry.
type Collector struct {
	EnsurePasses       prometheus.Counter
	ProducerRuns       *prometheus.CounterVec
	ProducerDuration   *prometheus.HistogramVec
	Commits            prometheus.Counter
	ValidationFailures prometheus.Counter
}

// New creates a collector registered on reg.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		EnsurePasses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "lazygrid",
			Name:      "ensure_passes_total",
			Help:      "Total number of top-level ensure targets requested",
		}),
		ProducerRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lazygrid",
			Name:      "producer_runs_total",
			Help:      "Total number of producer executions",
		}, []string{"producer"}),
		ProducerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lazygrid",
			Name:      "producer_duration_seconds",
			Help:      "Producer compute duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"producer"}),
		Commits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "lazygrid",
			Name:      "commits_total",
			Help:      "Total number of resource version bumps",
		}),
		ValidationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "lazygrid",
			Name:      "validation_failures_total",
			Help:      "Total number of buffers rejected by resource specs",
		}),
	}
}

// EnsureStarted implements grid.Observer.
func (c *Collector) EnsureStarted(string) {
	c.EnsurePasses.Inc()
}

// ProducerRan implements grid.Observer.
func (c *Collector) ProducerRan(producer string, _ []string, d time.Duration) {
	c.ProducerRuns.WithLabelValues(producer).Inc()
	c.ProducerDuration.WithLabelValues(producer).Observe(d.Seconds())
}

// Committed implements grid.Observer.
func (c *Collector) Committed(string, uint64) {
	c.Commits.Inc()
}

// ValidationFailed implements grid.Observer.
func (c *Collector) ValidationFailed(string) {
	c.ValidationFailures.Inc()
}

var _ grid.Observer = (*Collector)(nil)
