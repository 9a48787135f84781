package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Completion metrics
	CompletionRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foreman_completion_requests_total",
			Help: "Total number of completion requests routed",
		},
		[]string{"model", "status"}, // status: success|error|cached
	)

	CompletionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foreman_completion_latency_seconds",
			Help:    "Completion latency per model in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"model"},
	)

	CompletionCost = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foreman_completion_cost_usd",
			Help: "Estimated completion cost in USD",
		},
		[]string{"model"},
	)

	CompletionTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foreman_completion_tokens_total",
			Help: "Total tokens consumed by completions",
		},
		[]string{"model", "type"}, // type: input|output
	)

	// Fallback metrics
	FallbackDepth = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "foreman_fallback_depth",
			Help:    "Zero-based index of the model that finally served a request",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	FallbackExhausted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "foreman_fallback_exhausted_total",
			Help: "Total number of requests that failed on every candidate model",
		},
	)

	// Circuit breaker metrics
	CircuitBreakerOpens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foreman_circuit_breaker_opens_total",
			Help: "Total number of circuit breaker activations",
		},
		[]string{"model"},
	)

	CircuitBreakerSkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foreman_circuit_breaker_skips_total",
			Help: "Total number of candidates skipped because their breaker was open",
		},
		[]string{"model"},
	)

	// Cache metrics
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "foreman_response_cache_hits_total",
			Help: "Total response cache hits",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "foreman_response_cache_misses_total",
			Help: "Total response cache misses",
		},
	)

	CacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "foreman_response_cache_entries",
			Help: "Current number of response cache entries",
		},
	)

	// Provider metrics
	ProviderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foreman_provider_errors_total",
			Help: "Total provider failures by kind",
		},
		[]string{"model", "kind"}, // kind: timeout|api|other
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(CompletionRequests)
	prometheus.MustRegister(CompletionLatency)
	prometheus.MustRegister(CompletionCost)
	prometheus.MustRegister(CompletionTokens)

	prometheus.MustRegister(FallbackDepth)
	prometheus.MustRegister(FallbackExhausted)

	prometheus.MustRegister(CircuitBreakerOpens)
	prometheus.MustRegister(CircuitBreakerSkips)

	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(CacheSize)

	prometheus.MustRegister(ProviderErrors)
}

// Handler returns the scrape endpoint handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCompletion records a finished completion attempt chain
func RecordCompletion(model string, latency time.Duration, cost float64, inputTokens, outputTokens int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	CompletionRequests.WithLabelValues(model, status).Inc()
	CompletionLatency.WithLabelValues(model).Observe(latency.Seconds())

	if cost > 0 {
		CompletionCost.WithLabelValues(model).Add(cost)
	}
	if inputTokens > 0 {
		CompletionTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		CompletionTokens.WithLabelValues(model, "output").Add(float64(outputTokens))
	}
}
