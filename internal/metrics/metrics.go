package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Search outcomes used as the "outcome" label
const (
	OutcomeFound     = "found"
	OutcomeExhausted = "exhausted"
	OutcomeCancelled = "cancelled"
	OutcomeInvalid   = "invalid"
)

// Metrics holds the miner's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	noncesTested   prometheus.Counter
	searches       *prometheus.CounterVec
	searchDuration prometheus.Histogram
	workerPanics   prometheus.Counter
	activeWorkers  prometheus.Gauge
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		noncesTested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pow_miner_nonces_tested_total",
			Help: "Candidate nonces scored by all workers",
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pow_miner_searches_total",
			Help: "Completed searches by outcome",
		}, []string{"outcome"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pow_miner_search_duration_seconds",
			Help:    "Wall time of completed searches",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		workerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pow_miner_worker_panics_total",
			Help: "Workers that stopped because of a recovered panic",
		}),
		activeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pow_miner_active_workers",
			Help: "Worker goroutines currently searching",
		}),
	}

	for _, c := range []prometheus.Collector{m.noncesTested, m.searches, m.searchDuration, m.workerPanics, m.activeWorkers} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveSearch records a finished search
func (m *Metrics) ObserveSearch(outcome string, d time.Duration, attempts uint64) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
	m.searchDuration.Observe(d.Seconds())
	m.noncesTested.Add(float64(attempts))
}

// WorkerStarted increments the active worker gauge
func (m *Metrics) WorkerStarted() {
	if m == nil {
		return
	}
	m.activeWorkers.Inc()
}

// WorkerStopped decrements the active worker gauge
func (m *Metrics) WorkerStopped() {
	if m == nil {
		return
	}
	m.activeWorkers.Dec()
}

// WorkerPanicked counts a recovered worker panic
func (m *Metrics) WorkerPanicked() {
	if m == nil {
		return
	}
	m.workerPanics.Inc()
}

// Handler serves the metrics gathered by g in the prometheus text format
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
