package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the compositor.
type Metrics struct {
	registry           *prometheus.Registry
	requestsTotal      prometheus.Counter
	errorsTotal        prometheus.Counter
	runsSubmittedTotal prometheus.Counter
	runsCompletedTotal prometheus.Counter
	runsFailedTotal    *prometheus.CounterVec
	activeRuns         prometheus.Gauge
	runDuration        prometheus.Histogram
	outputBytesTotal   prometheus.Counter
}

// New creates and registers Prometheus metrics for the compositor.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compositor_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compositor_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	runsSubmittedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compositor_runs_submitted_total",
		Help: "Total number of composition runs accepted",
	})
	runsCompletedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compositor_runs_completed_total",
		Help: "Total number of composition runs that produced output",
	})
	runsFailedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "compositor_runs_failed_total",
		Help: "Total number of failed composition runs by error kind",
	}, []string{"kind"})
	activeRuns := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "compositor_active_runs",
		Help: "Number of runs that are queued or processing",
	})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "compositor_run_duration_seconds",
		Help:    "Wall-clock duration of finished composition runs",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 900, 1800},
	})
	outputBytesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compositor_output_bytes_total",
		Help: "Total bytes of rendered composites",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		runsSubmittedTotal,
		runsCompletedTotal,
		runsFailedTotal,
		activeRuns,
		runDuration,
		outputBytesTotal,
	)

	return &Metrics{
		registry:           registry,
		requestsTotal:      requestsTotal,
		errorsTotal:        errorsTotal,
		runsSubmittedTotal: runsSubmittedTotal,
		runsCompletedTotal: runsCompletedTotal,
		runsFailedTotal:    runsFailedTotal,
		activeRuns:         activeRuns,
		runDuration:        runDuration,
		outputBytesTotal:   outputBytesTotal,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncSubmitted increments the accepted runs counter.
func (m *Metrics) IncSubmitted() {
	m.runsSubmittedTotal.Inc()
}

// RunCompleted records a successful run and its output size.
func (m *Metrics) RunCompleted(d time.Duration, size int) {
	m.runsCompletedTotal.Inc()
	m.runDuration.Observe(d.Seconds())
	m.outputBytesTotal.Add(float64(size))
}

// RunFailed records a failed run under its error kind.
func (m *Metrics) RunFailed(kind string, d time.Duration) {
	m.runsFailedTotal.WithLabelValues(kind).Inc()
	m.runDuration.Observe(d.Seconds())
}

// SetActiveRuns sets the active runs gauge.
func (m *Metrics) SetActiveRuns(n int) {
	m.activeRuns.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active runs).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
