package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type prometheusMetrics struct {
	passes           *prometheus.CounterVec
	passDuration     prometheus.Histogram
	ghostCorrections *prometheus.CounterVec
	queueSize        prometheus.Gauge
	matchesCreated   prometheus.Counter
}

func setupPrometheusMetrics(registry *prometheus.Registry) prometheusMetrics {
	factory := promauto.With(registry)

	return prometheusMetrics{
		passes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lanequeue_passes_total",
				Help: "Queue processing passes by outcome",
			}, []string{"outcome"}),
		//nolint:promlinter
		passDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lanequeue_pass_duration_ms",
				Help:    "A histogram of queue processing pass duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			}),
		ghostCorrections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lanequeue_ghost_corrections_total",
				Help: "Cached values corrected toward the authoritative stores",
			}, []string{"kind"}),
		queueSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "lanequeue_queue_size",
				Help: "Eligible participants seen by the last pass",
			}),
		matchesCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lanequeue_matches_created_total",
				Help: "Matches persisted and announced",
			}),
	}
}

func (m prometheusMetrics) AddPass(outcome string, elapsed time.Duration) {
	m.passes.With(prometheus.Labels{"outcome": outcome}).Inc()
	m.passDuration.Observe(float64(elapsed.Milliseconds()))
}

func (m prometheusMetrics) AddGhostCorrection(kind string) {
	m.ghostCorrections.With(prometheus.Labels{"kind": kind}).Inc()
}

func (m prometheusMetrics) SetQueueSize(size int) {
	m.queueSize.Set(float64(size))
}

func (m prometheusMetrics) AddMatchCreated() {
	m.matchesCreated.Inc()
}
