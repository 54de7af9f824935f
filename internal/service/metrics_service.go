package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/campus-records-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic, the
// persistence gateway and the approval workflow.
type MetricsService struct {
	registry            *prometheus.Registry
	handler             http.Handler
	requestDuration     *prometheus.HistogramVec
	requestTotal        *prometheus.CounterVec
	remoteFailures      *prometheus.CounterVec
	breakerOpen         prometheus.Gauge
	cacheWrite          *prometheus.HistogramVec
	workflowTransitions *prometheus.CounterVec
	tutorAssignments    *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	remoteFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_remote_failures_total",
		Help: "Remote store failures by collection, operation and class",
	}, []string{"collection", "operation", "class"})

	breakerOpen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_breaker_open",
		Help: "1 when remote persistence is disabled for the session",
	})

	cacheWrite := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_cache_write_seconds",
		Help:    "Latency for fallback cache writes",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection"})

	workflowTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "change_request_transitions_total",
		Help: "Change request status transitions",
	}, []string{"from", "to"})

	tutorAssignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tutor_assignments_total",
		Help: "Students processed by tutor assignment runs",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, remoteFailures, breakerOpen, cacheWrite, workflowTransitions, tutorAssignments, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		remoteFailures:      remoteFailures,
		breakerOpen:         breakerOpen,
		cacheWrite:          cacheWrite,
		workflowTransitions: workflowTransitions,
		tutorAssignments:    tutorAssignments,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveRemoteFailure counts a failed remote operation.
func (m *MetricsService) ObserveRemoteFailure(collection, operation, class string) {
	if m == nil {
		return
	}
	m.remoteFailures.WithLabelValues(collection, operation, class).Inc()
}

// SetBreakerOpen publishes the breaker state.
func (m *MetricsService) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.breakerOpen.Set(1)
		return
	}
	m.breakerOpen.Set(0)
}

// ObserveCacheWrite tracks the duration of fallback cache writes.
func (m *MetricsService) ObserveCacheWrite(collection string, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.WithLabelValues(collection).Observe(duration.Seconds())
}

// ObserveWorkflowTransition counts a change request status transition.
func (m *MetricsService) ObserveWorkflowTransition(from, to models.ChangeRequestStatus) {
	if m == nil {
		return
	}
	m.workflowTransitions.WithLabelValues(string(from), string(to)).Inc()
}

// ObserveTutorAssignment records the outcome of an assignment run.
func (m *MetricsService) ObserveTutorAssignment(assigned, unassigned int) {
	if m == nil {
		return
	}
	m.tutorAssignments.WithLabelValues("assigned").Add(float64(assigned))
	m.tutorAssignments.WithLabelValues("unassigned").Add(float64(unassigned))
}
