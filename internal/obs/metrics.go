package obs

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	paymentsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_recorded_total",
			Help: "Payments written to the payment log, by booking match outcome.",
		},
		[]string{"booking"},
	)

	paymentIntents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_total",
			Help: "Payment intents requested from the gateway, by outcome.",
		},
		[]string{"outcome"},
	)

	initOnce sync.Once
)

// Init registers the collectors in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration, paymentsRecorded, paymentIntents)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePaymentRecorded counts a recorded payment; matched reports whether a booking was updated.
func ObservePaymentRecorded(matched bool) {
	label := "matched"
	if !matched {
		label = "unmatched"
	}
	paymentsRecorded.WithLabelValues(label).Inc()
}

// ObservePaymentIntent counts a gateway call by outcome ("created" or "failed").
func ObservePaymentIntent(outcome string) {
	paymentIntents.WithLabelValues(outcome).Inc()
}

// UnmatchedRoute labels requests no route pattern matched.
const UnmatchedRoute = "unmatched"

// Instrument records request count, latency and in-flight gauge.
// It must be mounted with chi's Use so the matched route pattern is available as the path label.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		path := RoutePattern(r)
		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
	})
}

// RoutePattern returns the chi pattern that served r, or UnmatchedRoute.
func RoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return UnmatchedRoute
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return UnmatchedRoute
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
