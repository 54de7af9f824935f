package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/models"
)

func TestMetricsServiceRecordsGatewayAndWorkflow(t *testing.T) {
	m := NewMetricsService()

	m.ObserveRemoteFailure("students", "upsert", "network")
	m.ObserveRemoteFailure("students", "upsert", "network")
	m.SetBreakerOpen(true)
	m.ObserveCacheWrite("students", 3*time.Millisecond)
	m.ObserveWorkflowTransition(models.ChangeRequestPendingAdmin2, models.ChangeRequestPendingAdmin1)
	m.ObserveTutorAssignment(4, 1)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/students", http.StatusOK, 10*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.remoteFailures.WithLabelValues("students", "upsert", "network")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.breakerOpen))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.workflowTransitions.WithLabelValues("pending_admin2", "pending_admin1")))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.tutorAssignments.WithLabelValues("assigned")))

	m.SetBreakerOpen(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.breakerOpen))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gateway_remote_failures_total")
	assert.Contains(t, rec.Body.String(), "change_request_transitions_total")
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveRemoteFailure("students", "fetch", "network")
		m.SetBreakerOpen(true)
		m.ObserveCacheWrite("students", time.Millisecond)
		m.ObserveWorkflowTransition(models.ChangeRequestPendingAdmin1, models.ChangeRequestApproved)
		m.ObserveTutorAssignment(1, 0)
		m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	})
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
