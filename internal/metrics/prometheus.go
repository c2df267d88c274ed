package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every gateway metric.
var Registry = prometheus.NewRegistry()

var (
	httpRequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_gateway_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status.",
		},
		[]string{"route", "method", "status"},
	)

	httpRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_gateway_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	generationsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_gateway_generations_total",
			Help: "Total number of generation runs by pipeline, provider, mode and status.",
		},
		[]string{"pipeline", "provider", "mode", "status"},
	)

	generationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_gateway_generation_duration_seconds",
			Help:    "Generation latency by pipeline and provider.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		},
		[]string{"pipeline", "provider"},
	)

	tokensTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_gateway_llm_tokens_total",
			Help: "Total number of LLM tokens by provider, model and direction.",
		},
		[]string{"provider", "model", "direction"},
	)

	rateLimitedTotal = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "ai_gateway_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// PrometheusHandler serves the registry in the Prometheus exposition format.
func PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest counts one finished HTTP request.
func ObserveHTTPRequest(route, method string, statusCode int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// ObserveGeneration counts one generation run.
func ObserveGeneration(pipeline, provider, mode string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	generationsTotal.WithLabelValues(pipeline, provider, mode, status).Inc()
	generationDuration.WithLabelValues(pipeline, provider).Observe(duration.Seconds())
}

// ObserveTokens adds token usage for one call.
func ObserveTokens(provider, model string, inputTokens, outputTokens int64) {
	tokensTotal.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	tokensTotal.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
}

// ObserveRateLimited counts one rejected request.
func ObserveRateLimited() {
	rateLimitedTotal.Inc()
}
