package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galkin_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "galkin_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	transformStarsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galkin_transform_stars_total",
			Help: "Total number of stars processed, by transform.",
		},
		[]string{"op"},
	)

	transformDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "galkin_transform_duration_seconds",
			Help:    "Transform batch duration in seconds.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"op"},
	)

	transformErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galkin_transform_errors_total",
			Help: "Total number of rejected transform requests, by kind.",
		},
		[]string{"op", "kind"},
	)

	poolWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "galkin_pool_workers",
			Help: "Number of workers in the transform pool.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(transformStarsTotal)
	prometheus.MustRegister(transformDurationSeconds)
	prometheus.MustRegister(transformErrorsTotal)
	prometheus.MustRegister(poolWorkers)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTransform records a completed transform batch.
func ObserveTransform(op string, stars int, d time.Duration) {
	transformStarsTotal.WithLabelValues(op).Add(float64(stars))
	transformDurationSeconds.WithLabelValues(op).Observe(d.Seconds())
}

// IncTransformError counts a rejected transform request.
func IncTransformError(op, kind string) {
	transformErrorsTotal.WithLabelValues(op, kind).Inc()
}

// SetPoolWorkers publishes the pool size configured at startup.
func SetPoolWorkers(n int) {
	poolWorkers.Set(float64(n))
}

// knownRoutes are the paths the server actually serves. Anything else is a
// scanner or a typo and gets a single shared label to keep cardinality
// bounded.
var knownRoutes = map[string]bool{
	"/":                true,
	"/healthz":         true,
	"/readyz":          true,
	"/metrics":         true,
	"/api/v1/galactic": true,
	"/api/v1/xyz":      true,
	"/api/v1/uvw":      true,
}

func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		path := normalizeRoute(r.URL.Path)
		code := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}
