package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are registered on the server's own registry so several servers
// can coexist in one process.
type metrics struct {
	samplesTotal   prometheus.Counter
	sampleCount    prometheus.Gauge
	accumulating   prometheus.Gauge
	presentsTotal  prometheus.Counter
	upscalesTotal  prometheus.Counter
	reloadAttempts prometheus.Counter
	reloadFailures prometheus.Counter
	droppedTotal   prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		samplesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "blossom_samples_total",
			Help: "Accumulate draws completed since start",
		}),
		sampleCount: f.NewGauge(prometheus.GaugeOpts{
			Name: "blossom_sample_count",
			Help: "Sample counter of the current run",
		}),
		accumulating: f.NewGauge(prometheus.GaugeOpts{
			Name: "blossom_accumulating",
			Help: "1 while accumulating, 0 while previewing",
		}),
		presentsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "blossom_presents_total",
			Help: "Samples presented to the display",
		}),
		upscalesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "blossom_upscales_total",
			Help: "Upscale transitions performed",
		}),
		reloadAttempts: f.NewCounter(prometheus.CounterOpts{
			Name: "blossom_reload_attempts_total",
			Help: "Program reloads attempted",
		}),
		reloadFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "blossom_reload_failures_total",
			Help: "Program reloads with at least one failed role",
		}),
		droppedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "blossom_monitor_dropped_total",
			Help: "Snapshots dropped because the hub was behind",
		}),
	}
}
