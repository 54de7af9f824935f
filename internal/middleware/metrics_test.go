package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type recordedRequest struct {
	method, path string
	status       int
}

type requestRecorder struct {
	requests []recordedRequest
}

func (r *requestRecorder) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	r.requests = append(r.requests, recordedRequest{method: method, path: path, status: status})
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := &requestRecorder{}
	router := gin.New()
	router.Use(Metrics(recorder))
	router.GET("/students/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, "/students/S1", "")
	serve(router, "/nowhere", "")

	if len(recorder.requests) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(recorder.requests))
	}
	if got := recorder.requests[0]; got.path != "/students/:id" || got.status != http.StatusOK {
		t.Fatalf("unexpected observation: %+v", got)
	}
	if got := recorder.requests[1]; got.path != "unmatched" || got.status != http.StatusNotFound {
		t.Fatalf("unexpected observation: %+v", got)
	}
}
