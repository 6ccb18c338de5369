// Package metrics provides Prometheus instrumentation for CallGuard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callguard",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and route.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "callguard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// AnalysesTotal counts completed analyses by alert flag and fallback mode.
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callguard",
			Name:      "analyses_total",
			Help:      "Total call analyses by alert outcome and fallback mode.",
		},
		[]string{"alert", "fallback"},
	)

	// RiskScore observes the distribution of final risk scores.
	RiskScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "callguard",
		Name:      "risk_score",
		Help:      "Distribution of final risk scores (0-100).",
		Buckets:   []float64{10, 20, 30, 40, 55, 70, 80, 90, 100},
	})

	// ClassifierFailuresTotal counts classifier errors that degraded to keyword-only intent.
	ClassifierFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "callguard",
		Name:      "classifier_failures_total",
		Help:      "Classifier inference failures treated as model-unavailable.",
	})

	// CacheLookupsTotal counts outcome cache lookups by result.
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callguard",
			Name:      "cache_lookups_total",
			Help:      "Outcome cache lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)

	// FallbacksTotal counts fallback-transcript substitutions by reason.
	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callguard",
			Name:      "fallbacks_total",
			Help:      "Fallback transcript substitutions by reason.",
		},
		[]string{"reason"},
	)

	// AlertsPublishedTotal counts alert events by delivery result.
	AlertsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callguard",
			Name:      "alerts_published_total",
			Help:      "Alert events published by result.",
		},
		[]string{"result"},
	)

	// ActiveWebSocketClients tracks connected alert stream clients.
	ActiveWebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "callguard",
		Name:      "active_websocket_clients",
		Help:      "Number of currently connected alert WebSocket clients.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AnalysesTotal,
		RiskScore,
		ClassifierFailuresTotal,
		CacheLookupsTotal,
		FallbacksTotal,
		AlertsPublishedTotal,
		ActiveWebSocketClients,
	)
}

// Handler serves the Prometheus exposition endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency keyed by the chi route
// pattern, which keeps label cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordAnalysis records one completed analysis.
func RecordAnalysis(alert, fallback bool, riskScore float64) {
	AnalysesTotal.WithLabelValues(strconv.FormatBool(alert), strconv.FormatBool(fallback)).Inc()
	RiskScore.Observe(riskScore)
}
