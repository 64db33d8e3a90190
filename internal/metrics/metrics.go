// Package metrics exposes Prometheus collectors for the grading service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scansTotal               *prometheus.CounterVec
	analyzerDurationSeconds  *prometheus.HistogramVec
	httpRequestsTotal        *prometheus.CounterVec
	httpRequestDurationSecs  *prometheus.HistogramVec
	browserActivePages       prometheus.Gauge
	graderActiveWorkers      prometheus.Gauge
	scanQueueDepth           prometheus.Gauge
	recommendationsGenerated prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scansTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grader_scans_total",
				Help: "Total number of scans processed, labeled by terminal status.",
			},
			[]string{"status"},
		)

		analyzerDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "grader_analyzer_duration_seconds",
				Help:    "Histogram of analyzer run times, labeled by analyzer.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"analyzer"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		browserActivePages = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "grader_browser_active_pages",
				Help: "Number of browser pages currently held by analyzers.",
			},
		)

		graderActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "grader_active_workers",
				Help: "Number of workers currently processing a scan.",
			},
		)

		scanQueueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "grader_scan_queue_depth",
				Help: "Number of scans waiting in the queue.",
			},
		)

		recommendationsGenerated = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "grader_recommendations_generated_total",
				Help: "Total number of recommendations attached to completed scans.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveScan increments the scan counter for the given terminal status.
func ObserveScan(status string) {
	if scansTotal == nil {
		return
	}
	scansTotal.WithLabelValues(status).Inc()
}

// ObserveAnalyzer starts timing one analyzer run and returns the stop
// function that records the duration.
func ObserveAnalyzer(analyzer string) func() {
	start := time.Now()
	return func() {
		if analyzerDurationSeconds == nil {
			return
		}
		analyzerDurationSeconds.WithLabelValues(analyzer).Observe(time.Since(start).Seconds())
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSecs.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetBrowserActivePages records the current open page count.
func SetBrowserActivePages(n int) {
	if browserActivePages == nil {
		return
	}
	browserActivePages.Set(float64(n))
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	if graderActiveWorkers == nil {
		return
	}
	graderActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	if graderActiveWorkers == nil {
		return
	}
	graderActiveWorkers.Dec()
}

// SetQueueDepth records the number of scans waiting to run.
func SetQueueDepth(n int) {
	if scanQueueDepth == nil {
		return
	}
	scanQueueDepth.Set(float64(n))
}

// AddRecommendations counts recommendations attached to a finished scan.
func AddRecommendations(n int) {
	if recommendationsGenerated == nil || n <= 0 {
		return
	}
	recommendationsGenerated.Add(float64(n))
}
