// Package metrics exposes Prometheus collectors for the retry, posting and HTTP paths.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reelkit/reelkit/internal/retry"
)

const namespace = "reelkit"

// Registry holds every reelkit collector. It is private to the process so
// tests and embedded servers do not collide with the global registry.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// AttemptsTotal counts executed attempts per service and outcome.
	AttemptsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total number of rate-limited operation attempts",
		},
		[]string{"service", "outcome"},
	)

	// RetriesTotal counts scheduled retries per service and error category.
	RetriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of retries scheduled after a failed attempt",
		},
		[]string{"service", "category"},
	)

	// RateLimitWait tracks time spent waiting for limiter capacity.
	RateLimitWait = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ratelimit_wait_seconds",
			Help:      "Time spent waiting for rate limit capacity",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// PostsTotal counts scheduler posts by status.
	PostsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_total",
			Help:      "Total number of scheduled posts",
		},
		[]string{"status"},
	)

	// QueueSize reports the number of items in the content queue.
	QueueSize = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_size",
			Help:      "Number of items in the content queue",
		},
	)

	// ErrorsTotal counts HTTP error responses by envelope code and status.
	ErrorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of HTTP error responses",
		},
		[]string{"code", "status"},
	)

	// ErrorsByEndpoint counts HTTP error responses by path.
	ErrorsByEndpoint = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_by_endpoint_total",
			Help:      "Total number of HTTP error responses per endpoint",
		},
		[]string{"endpoint", "code"},
	)

	// HTTPRequestsTotal counts served HTTP requests.
	HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// PanicsTotal counts recovered handler panics.
	PanicsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panics_total",
			Help:      "Total number of recovered panics",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// ObserveAttempt records one retry attempt. It matches retry.Retrier.OnAttempt.
func ObserveAttempt(a retry.Attempt) {
	outcome := "success"
	if a.Err != nil {
		outcome = "error"
	}
	AttemptsTotal.WithLabelValues(a.Service, outcome).Inc()
	if a.WillRetry {
		RetriesTotal.WithLabelValues(a.Service, string(a.Category)).Inc()
	}
	if a.Waited > 0 {
		RateLimitWait.WithLabelValues(a.Service).Observe(a.Waited.Seconds())
	}
}

// RecordPost counts a scheduler post outcome.
func RecordPost(status string) {
	PostsTotal.WithLabelValues(status).Inc()
}

// SetQueueSize sets the queue size gauge.
func SetQueueSize(n int) {
	QueueSize.Set(float64(n))
}

// RecordError counts an HTTP error response.
func RecordError(errorCode string, httpStatus int) {
	ErrorsTotal.WithLabelValues(errorCode, strconv.Itoa(httpStatus)).Inc()
}

// RecordErrorByEndpoint counts an HTTP error response for endpoint.
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	ErrorsByEndpoint.WithLabelValues(endpoint, errorCode).Inc()
}

// ObserveHTTPRequest records one served request. endpoint must be a route
// pattern, never a raw path.
func ObserveHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordPanic counts a recovered panic.
func RecordPanic() {
	PanicsTotal.Inc()
}
