// Package metrics provides Prometheus metrics for the todo API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"todoapi/internal/cache"
)

// Namespace prefixes every metric name
const Namespace = "todoapi"

// Metrics holds the per-worker metrics.
type Metrics struct {
	// Cache metrics
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	CacheStores   prometheus.Counter
	CacheBypasses prometheus.Counter

	// Handler metrics, recorded only when a route handler actually runs
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates worker metrics registered on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "GET requests served from the response cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "GET requests that reached a route handler",
		}),
		CacheStores: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "stores_total",
			Help:      "Response bodies inserted into the cache",
		}),
		CacheBypasses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "bypasses_total",
			Help:      "Non-GET requests that skipped the cache",
		}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_requests_total",
			Help:      "Route handler executions by method, route and status",
		}, []string{"method", "route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Route handler duration by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// CacheObserver adapts the cache counters to cache.Observer
func (m *Metrics) CacheObserver() cache.Observer {
	return cacheObserver{m}
}

type cacheObserver struct{ m *Metrics }

func (o cacheObserver) Hit()      { o.m.CacheHits.Inc() }
func (o cacheObserver) Miss()     { o.m.CacheMisses.Inc() }
func (o cacheObserver) Stored()   { o.m.CacheStores.Inc() }
func (o cacheObserver) Bypassed() { o.m.CacheBypasses.Inc() }

// RecordRequest records a route handler execution.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Middleware records every request that reaches next. The route label is
// the ServeMux pattern that matched.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequest(r.Method, route, sw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(status int) {
	if !sw.wroteHeader {
		sw.status = status
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(status)
}

func (sw *statusWriter) Write(p []byte) (int, error) {
	sw.wroteHeader = true
	return sw.ResponseWriter.Write(p)
}

// SupervisorMetrics holds metrics of the process supervisor.
type SupervisorMetrics struct {
	WorkersRunning prometheus.Gauge
	WorkerStarts   prometheus.Counter
	WorkerExits    *prometheus.CounterVec
}

// NewSupervisorMetrics creates supervisor metrics registered on reg.
func NewSupervisorMetrics(namespace string, reg prometheus.Registerer) *SupervisorMetrics {
	factory := promauto.With(reg)

	return &SupervisorMetrics{
		WorkersRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "workers_running",
			Help:      "Worker processes currently running",
		}),
		WorkerStarts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "worker_starts_total",
			Help:      "Worker processes started, including restarts",
		}),
		WorkerExits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "worker_exits_total",
			Help:      "Worker process exits by slot",
		}, []string{"slot"}),
	}
}

// WorkerStarted records a worker start
func (m *SupervisorMetrics) WorkerStarted() {
	m.WorkerStarts.Inc()
	m.WorkersRunning.Inc()
}

// WorkerExited records a worker exit
func (m *SupervisorMetrics) WorkerExited(slot int) {
	m.WorkersRunning.Dec()
	m.WorkerExits.WithLabelValues(strconv.Itoa(slot)).Inc()
}
