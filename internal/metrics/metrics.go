// Package metrics exposes Prometheus collectors for the scanner service.
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
	scansTotal                 *prometheus.CounterVec
	scanDurationSeconds        *prometheus.HistogramVec
	analyzerFailuresTotal      *prometheus.CounterVec
	activeBrowserSessions      prometheus.Gauge
	openPages                  prometheus.Gauge
	pageLeaksTotal             prometheus.Counter
	taskRetriesTotal           prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scansTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanner_scans_total",
				Help: "Total number of scans processed, labeled by terminal status.",
			},
			[]string{"status"},
		)

		scanDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scanner_scan_duration_seconds",
				Help:    "Histogram of end-to-end scan durations, labeled by category.",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"category"},
		)

		analyzerFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanner_analyzer_failures_total",
				Help: "Total analyzer failures absorbed into default results, labeled by source.",
			},
			[]string{"source"},
		)

		activeBrowserSessions = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scanner_active_browser_sessions",
				Help: "Number of browser sessions currently open.",
			},
		)

		openPages = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scanner_open_pages",
				Help: "Number of browser pages currently tracked as open.",
			},
		)

		pageLeaksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scanner_page_leaks_total",
				Help: "Total pages still open when their session closed.",
			},
		)

		taskRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scanner_task_retries_total",
				Help: "Total background scan attempts beyond the first.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveScan records one terminal scan outcome.
func ObserveScan(status string, category string, duration time.Duration) {
	Init()
	scansTotal.WithLabelValues(status).Inc()
	scanDurationSeconds.WithLabelValues(category).Observe(duration.Seconds())
}

// ObserveAnalyzerFailure records an absorbed analyzer failure.
func ObserveAnalyzerFailure(source string) {
	Init()
	analyzerFailuresTotal.WithLabelValues(source).Inc()
}

// SessionOpened increments the active browser session gauge.
func SessionOpened() {
	Init()
	activeBrowserSessions.Inc()
}

// SessionClosed decrements the active browser session gauge.
func SessionClosed() {
	Init()
	activeBrowserSessions.Dec()
}

// PageOpened increments the open page gauge.
func PageOpened() {
	Init()
	openPages.Inc()
}

// PageClosed decrements the open page gauge.
func PageClosed() {
	Init()
	openPages.Dec()
}

// ObservePageLeak records a page reaped by session close.
func ObservePageLeak() {
	Init()
	pageLeaksTotal.Inc()
}

// ObserveTaskRetry records a retried background attempt.
func ObserveTaskRetry() {
	Init()
	taskRetriesTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
