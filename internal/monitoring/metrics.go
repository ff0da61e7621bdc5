package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "teampulse"

// Metrics holds the service's Prometheus collectors on a private registry.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	analysisRequests *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	partialResults   *prometheus.CounterVec

	activitiesNormalized *prometheus.CounterVec
	eventsDropped        *prometheus.CounterVec
	foldsSkipped         prometheus.Counter
	unresolvedActivities prometheus.Counter

	rateLimited prometheus.Counter
}

// NewMetrics creates and registers all collectors
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and method",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	m.analysisRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "analysis",
		Name:      "requests_total",
		Help:      "Analytics computations by operation and outcome",
	}, []string{"operation", "outcome"})

	m.analysisDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "analysis",
		Name:      "duration_seconds",
		Help:      "Analytics computation latency by operation",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	m.partialResults = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "analysis",
		Name:      "partial_results_total",
		Help:      "Results returned early because the aggregation deadline passed",
	}, []string{"operation"})

	m.activitiesNormalized = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "normalize",
		Name:      "activities_total",
		Help:      "Canonical activities produced by source",
	}, []string{"source"})

	m.eventsDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "normalize",
		Name:      "events_dropped_total",
		Help:      "Raw events dropped during normalization by reason",
	}, []string{"reason"})

	m.foldsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "analysis",
		Name:      "folds_skipped_total",
		Help:      "Activities that could not be folded into an aggregate",
	})

	m.unresolvedActivities = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "identity",
		Name:      "unresolved_activities_total",
		Help:      "Activities whose actor matched no member",
	})

	m.rateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter",
	})

	return m
}

// Registry exposes the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest records one served HTTP request
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordAnalysis records one analytics computation
func (m *Metrics) RecordAnalysis(operation string, err error, partial bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.analysisRequests.WithLabelValues(operation, outcome).Inc()
	m.analysisDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if partial {
		m.partialResults.WithLabelValues(operation).Inc()
	}
}

// RecordNormalized counts activities produced for a source
func (m *Metrics) RecordNormalized(source string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.activitiesNormalized.WithLabelValues(source).Add(float64(n))
}

// RecordDropped counts raw events dropped for a reason
func (m *Metrics) RecordDropped(reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.eventsDropped.WithLabelValues(reason).Add(float64(n))
}

// RecordSkipped counts activities skipped during folding
func (m *Metrics) RecordSkipped(n int) {
	if m == nil || n == 0 {
		return
	}
	m.foldsSkipped.Add(float64(n))
}

// RecordUnresolved counts activities without a resolved member
func (m *Metrics) RecordUnresolved(n int) {
	if m == nil || n == 0 {
		return
	}
	m.unresolvedActivities.Add(float64(n))
}

// IncrementRateLimited counts a rejected request
func (m *Metrics) IncrementRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
