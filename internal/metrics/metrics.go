// Package metrics collects and exposes Prometheus metrics for the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// Collector registers and records the gateway's metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	loginsTotal      prometheus.Counter
	loginFailures    *prometheus.CounterVec
	revokeFailures   prometheus.Counter
	upstreamErrors   *prometheus.CounterVec
}

// NewCollector creates a Collector with all metrics registered.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "polaris_http_requests_total",
			Help: "Total HTTP requests handled, by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "polaris_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		requestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "polaris_http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
		loginsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "polaris_logins_total",
			Help: "Successful session logins.",
		}),
		loginFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "polaris_login_failures_total",
			Help: "Failed session logins, by reason.",
		}, []string{"reason"}),
		revokeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "polaris_logout_revoke_failures_total",
			Help: "Logout revocations that failed and were swallowed.",
		}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "polaris_upstream_errors_total",
			Help: "MCP upstream calls that failed or returned an error status.",
		}, []string{"route"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.requestsTotal,
		c.requestDuration,
		c.requestsInFlight,
		c.loginsTotal,
		c.loginFailures,
		c.revokeFailures,
		c.upstreamErrors,
	)

	return c
}

// Handler exposes the registry for scraping.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency. Routes are labelled by
// chi route pattern to keep cardinality bounded.
func (c *Collector) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			c.requestsInFlight.Inc()
			next.ServeHTTP(recorder, r)
			c.requestsInFlight.Dec()

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}

			c.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(recorder.status)).Inc()
			c.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

func (c *Collector) RecordLogin() {
	c.loginsTotal.Inc()
}

func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordRevokeFailure() {
	c.revokeFailures.Inc()
}

func (c *Collector) RecordUpstreamError(route string) {
	c.upstreamErrors.WithLabelValues(route).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Flush keeps streamed downloads flowing through the wrapper.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Module provides the metrics dependencies
var Module = fx.Module("metrics",
	fx.Provide(
		NewCollector,
	),
)
