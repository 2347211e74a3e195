// Package metrics exposes engine health as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nvandessel/gravsim/internal/diagnostics"
	"github.com/nvandessel/gravsim/internal/engine"
	"github.com/nvandessel/gravsim/internal/vecmath"
)

// Collector records per-tick and per-report metrics on a private registry,
// so several engines (or tests) never collide on the global one.
type Collector struct {
	registry *prometheus.Registry

	ticksTotal   prometheus.Counter
	tickDuration prometheus.Histogram
	bodies       prometheus.Gauge
	nonFinite    prometheus.Gauge
	momentum     prometheus.Gauge
	energy       prometheus.Gauge
	simTime      prometheus.Gauge
}

// NewCollector creates a collector with all metrics registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gravsim_ticks_total",
			Help: "Total number of committed ticks",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gravsim_tick_duration_seconds",
			Help:    "Time spent computing one tick",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		bodies: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gravsim_bodies",
			Help: "Number of simulated bodies",
		}),
		nonFinite: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gravsim_non_finite_positions",
			Help: "Bodies whose position is NaN or infinite in the latest frame",
		}),
		momentum: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gravsim_momentum_magnitude",
			Help: "Magnitude of total momentum at the latest diagnostics report",
		}),
		energy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gravsim_total_energy",
			Help: "Kinetic plus potential energy at the latest diagnostics report",
		}),
		simTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gravsim_simulated_seconds",
			Help: "Simulated time of the latest frame",
		}),
	}

	c.registry.MustRegister(
		c.ticksTotal,
		c.tickDuration,
		c.bodies,
		c.nonFinite,
		c.momentum,
		c.energy,
		c.simTime,
	)
	return c
}

// ObserveFrame implements engine.Observer.
func (c *Collector) ObserveFrame(f *engine.Frame) {
	c.ticksTotal.Inc()
	c.tickDuration.Observe(f.Elapsed.Seconds())
	c.bodies.Set(float64(len(f.Positions)))
	c.simTime.Set(f.Time)

	bad := 0
	for _, p := range f.Positions {
		if !vecmath.IsFinite(p) {
			bad++
		}
	}
	c.nonFinite.Set(float64(bad))
}

// ObserveReport implements engine.ReportObserver.
func (c *Collector) ObserveReport(r diagnostics.Report) {
	c.momentum.Set(r.Momentum.Len())
	c.energy.Set(r.TotalEnergy())
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
