package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackgen_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trackgen_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	trackRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackgen_track_runs_total",
			Help: "Total number of tracking runs by outcome.",
		},
		[]string{"outcome"},
	)

	trackRunDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trackgen_track_run_duration_seconds",
			Help:    "Wall-clock duration of a tracking run.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	samplesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackgen_samples_total",
			Help: "Total number of pointing samples computed.",
		},
	)

	samplesEmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackgen_samples_emitted_total",
			Help: "Total number of pointing records written to a sink.",
		},
	)

	propagationErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackgen_propagation_errors_total",
			Help: "Total number of instants the propagator could not evaluate.",
		},
	)

	workersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackgen_workers_active",
			Help: "Number of sample workers in the running pool.",
		},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackgen_streams_active",
			Help: "Number of open track event streams.",
		},
	)

	streamEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackgen_stream_events_total",
			Help: "Total number of server-sent events written, by event name.",
		},
		[]string{"event"},
	)

	streamRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackgen_stream_rejected_total",
			Help: "Total number of streams refused by the concurrency limit.",
		},
	)

	stateCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackgen_state_cache_hits_total",
			Help: "Total number of whole-second SGP4 states served from cache.",
		},
	)

	stateCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackgen_state_cache_misses_total",
			Help: "Total number of whole-second SGP4 states that had to be propagated.",
		},
	)

	stateCacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackgen_state_cache_evictions_total",
			Help: "Total number of cached SGP4 states evicted.",
		},
	)

	tleAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackgen_tle_age_seconds",
			Help: "Age of the TLE epoch relative to the start of the last run.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(trackRunsTotal)
	prometheus.MustRegister(trackRunDurationSeconds)
	prometheus.MustRegister(samplesTotal)
	prometheus.MustRegister(samplesEmittedTotal)
	prometheus.MustRegister(propagationErrorsTotal)
	prometheus.MustRegister(workersActive)
	prometheus.MustRegister(streamsActive)
	prometheus.MustRegister(streamEventsTotal)
	prometheus.MustRegister(streamRejectedTotal)
	prometheus.MustRegister(stateCacheHitsTotal)
	prometheus.MustRegister(stateCacheMissesTotal)
	prometheus.MustRegister(stateCacheEvictionsTotal)
	prometheus.MustRegister(tleAgeSeconds)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRun records a finished tracking run.
func RecordRun(duration time.Duration, computed, emitted int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	trackRunsTotal.WithLabelValues(outcome).Inc()
	trackRunDurationSeconds.Observe(duration.Seconds())
	samplesTotal.Add(float64(computed))
	samplesEmittedTotal.Add(float64(emitted))
}

// IncPropagationErrors counts one failed propagation.
func IncPropagationErrors() {
	propagationErrorsTotal.Inc()
}

// SetWorkersActive sets the size of the running worker pool.
func SetWorkersActive(n int) {
	workersActive.Set(float64(n))
}

// SetTLEAge records how far the run start is from the element epoch.
func SetTLEAge(age time.Duration) {
	tleAgeSeconds.Set(age.Seconds())
}

// IncStreamsActive counts an opened event stream.
func IncStreamsActive() {
	streamsActive.Inc()
}

// DecStreamsActive counts a closed event stream.
func DecStreamsActive() {
	streamsActive.Dec()
}

// IncStreamEvents counts one written event.
func IncStreamEvents(event string) {
	streamEventsTotal.WithLabelValues(event).Inc()
}

// IncStreamRejected counts a stream refused by the limiter.
func IncStreamRejected() {
	streamRejectedTotal.Inc()
}

// IncStateCacheHits increments the state cache hit counter.
func IncStateCacheHits() {
	stateCacheHitsTotal.Inc()
}

// IncStateCacheMisses increments the state cache miss counter.
func IncStateCacheMisses() {
	stateCacheMissesTotal.Inc()
}

// AddStateCacheEvictions adds n to the state cache eviction counter.
func AddStateCacheEvictions(n int) {
	stateCacheEvictionsTotal.Add(float64(n))
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

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// knownRoutes are labelled as-is; anything else collapses to "other" so bots
// probing random paths cannot blow up label cardinality.
var knownRoutes = map[string]bool{
	"/":                    true,
	"/healthz":             true,
	"/readyz":              true,
	"/metrics":             true,
	"/api/v1/track":        true,
	"/api/v1/track/stream": true,
	"/api/v1/config":       true,
}

func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/static/") {
		return "/static/"
	}
	return "other"
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
