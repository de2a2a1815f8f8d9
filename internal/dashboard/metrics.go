package dashboard

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	refreshes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  prometheus.Histogram
	stale     prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	m := &metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recipehub",
			Subsystem: "dashboard",
			Name:      "refreshes_total",
			Help:      "Dashboard refreshes by outcome",
		}, []string{"outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recipehub",
			Subsystem: "dashboard",
			Name:      "source_failures_total",
			Help:      "Dashboard sources that failed during a refresh",
		}, []string{"source"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "recipehub",
			Subsystem: "dashboard",
			Name:      "refresh_duration_seconds",
			Help:      "Time to fetch and derive one dashboard snapshot",
			Buckets:   prometheus.DefBuckets,
		}),
		stale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "recipehub",
			Subsystem: "dashboard",
			Name:      "stale_stats",
			Help:      "Stats that fell back to zero in the latest snapshot",
		}),
	}
	reg.MustRegister(m.refreshes, m.failures, m.duration, m.stale)
	return m
}

func (m *metrics) observe(outcome string, elapsed time.Duration, failed []string, stale int) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
	for _, s := range failed {
		m.failures.WithLabelValues(s).Inc()
	}
	if outcome != outcomeFailed {
		m.stale.Set(float64(stale))
	}
}
