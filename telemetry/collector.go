// Package telemetry exports sampler progress as Prometheus metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomoris/NPBEE/bayesee"
)

// Collector implements bayesee.Observer on top of Prometheus metrics.
// It is safe for concurrent use by several chains.
type Collector struct {
	sweeps   *prometheus.CounterVec
	clusters prometheus.Gauge
	duration prometheus.Histogram
}

// NewCollector registers the sampler metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		// sweeps counts finished sweeps by phase
		sweeps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "npbee_sweeps_total",
			Help: "Total Gibbs sweeps by phase",
		}, []string{"phase"}),
		clusters: factory.NewGauge(prometheus.GaugeOpts{
			Name: "npbee_active_clusters",
			Help: "Occupied error-rate clusters after the last sweep",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "npbee_sweep_duration_seconds",
			Help:    "Gibbs sweep duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~0.8s
		}),
	}
}

// ObserveSweep records one sweep.
func (c *Collector) ObserveSweep(stats bayesee.SweepStats) {
	c.sweeps.WithLabelValues(string(stats.Phase)).Inc()
	c.clusters.Set(float64(stats.ActiveClusters))
	c.duration.Observe(stats.Duration.Seconds())
}

var _ bayesee.Observer = (*Collector)(nil)
