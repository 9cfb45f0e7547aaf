package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Optimizer metrics
	optimizationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_optimization_runs_total",
			Help: "Total number of optimization runs by objective and outcome",
		},
		[]string{"method", "status"},
	)

	optimizationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_optimization_duration_seconds",
			Help:    "Wall time spent solving one objective",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// History provider metrics
	historyCacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_history_cache_requests_total",
			Help: "Series lookups answered from or missing the history cache",
		},
		[]string{"result"},
	)

	historyFetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_history_fetch_errors_total",
			Help: "Failed history fetches by provider",
		},
		[]string{"provider"},
	)

	// Report metrics
	reportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_reports_total",
			Help: "Portfolio reports assembled by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(optimizationRuns)
	prometheus.MustRegister(optimizationDuration)
	prometheus.MustRegister(historyCacheRequests)
	prometheus.MustRegister(historyFetchErrors)
	prometheus.MustRegister(reportsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordOptimization records one solved objective
func RecordOptimization(method string, success bool, elapsed time.Duration) {
	status := "success"
	if !success {
		status = "failed"
	}
	optimizationRuns.WithLabelValues(method, status).Inc()
	optimizationDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// RecordHistoryCache records a cache hit or miss
func RecordHistoryCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	historyCacheRequests.WithLabelValues(result).Inc()
}

// RecordHistoryError records a failed fetch against a provider
func RecordHistoryError(provider string) {
	historyFetchErrors.WithLabelValues(provider).Inc()
}

// RecordReport records an assembled report ("ok", "empty" or "error")
func RecordReport(outcome string) {
	reportsTotal.WithLabelValues(outcome).Inc()
}
