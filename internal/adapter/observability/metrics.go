package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total number of model provider calls by source and outcome",
		},
		[]string{"source", "outcome"},
	)
	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Model provider call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"source"},
	)
	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_fallbacks_total",
			Help: "Hosted dispatches substituted with local generation, by reason",
		},
		[]string{"reason"},
	)

	AttemptsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attempts_completed_total",
			Help: "Attempts reaching a terminal status",
		},
		[]string{"status"},
	)
	AttemptsProcessing = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "attempts_processing",
			Help: "Attempts currently being evaluated",
		},
	)

	// Evaluation outcome distribution
	ScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evaluation_total_score",
			Help:    "Distribution of total scores ([0,10])",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
	)

	RateLimitedGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hosted_rate_limited",
			Help: "1 while the shared hosted-quota window is limited",
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderRequestDuration)
	prometheus.MustRegister(FallbacksTotal)
	prometheus.MustRegister(AttemptsCompletedTotal)
	prometheus.MustRegister(AttemptsProcessing)
	prometheus.MustRegister(ScoreHistogram)
	prometheus.MustRegister(RateLimitedGauge)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveProviderCall records one provider invocation.
func ObserveProviderCall(source, outcome string, dur time.Duration) {
	ProviderRequestsTotal.WithLabelValues(source, outcome).Inc()
	ProviderRequestDuration.WithLabelValues(source).Observe(dur.Seconds())
}

// ObserveScore records the total score of a completed evaluation.
func ObserveScore(score int) {
	if score >= 0 && score <= 10 {
		ScoreHistogram.Observe(float64(score))
	}
}
