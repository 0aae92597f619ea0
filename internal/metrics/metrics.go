// Package metrics exposes Prometheus instrumentation for the API server and
// the data pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns a private registry and the collectors registered on it.
type Manager struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	activeRequests   prometheus.Gauge
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	memoHits         prometheus.Counter
	memoMisses       prometheus.Counter
}

// New creates a manager with a fresh registry, so tests and multiple
// instances never collide on collector registration.
func New() *Manager {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Manager{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pitchboard",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pitchboard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		activeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pitchboard",
			Name:      "http_active_requests",
			Help:      "Requests currently being served.",
		}),
		upstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pitchboard",
			Name:      "upstream_requests_total",
			Help:      "Data API calls, by endpoint and status.",
		}, []string{"endpoint", "status"}),
		upstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pitchboard",
			Name:      "upstream_request_duration_seconds",
			Help:      "Data API call latency, by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		memoHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pitchboard",
			Name:      "memo_hits_total",
			Help:      "Fetch results served from the memo cache.",
		}),
		memoMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pitchboard",
			Name:      "memo_misses_total",
			Help:      "Fetch results that required an upstream call.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Manager) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveUpstream records one data API call. status 0 means the call failed
// before any response arrived.
func (m *Manager) ObserveUpstream(endpoint string, status int, elapsed time.Duration) {
	m.upstreamRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.upstreamDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// MemoHit counts a fetch served from the memo cache.
func (m *Manager) MemoHit() { m.memoHits.Inc() }

// MemoMiss counts a fetch that went upstream.
func (m *Manager) MemoMiss() { m.memoMisses.Inc() }

// RequestStarted increments the in-flight gauge.
func (m *Manager) RequestStarted() { m.activeRequests.Inc() }

// RequestDone decrements the in-flight gauge.
func (m *Manager) RequestDone() { m.activeRequests.Dec() }
