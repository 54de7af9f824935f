package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/repository"
	"github.com/noah-isme/campus-records-api/internal/service"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

type gatewayStatusReader interface {
	Status() repository.GatewayStatus
}

// SystemHandler exposes observability endpoints.
type SystemHandler struct {
	metrics *service.MetricsService
	gateway gatewayStatusReader
}

// NewSystemHandler constructs a system handler.
func NewSystemHandler(metrics *service.MetricsService, gateway gatewayStatusReader) *SystemHandler {
	return &SystemHandler{metrics: metrics, gateway: gateway}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *SystemHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports readiness. The service stays ready on the fallback cache, so the
// persistence mode is reported rather than failing the probe.
func (h *SystemHandler) Ready(c *gin.Context) {
	mode := "fallback"
	if h.gateway != nil {
		if status := h.gateway.Status(); status.RemoteEnabled && !status.BreakerOpen {
			mode = "remote"
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "persistence": mode})
}

// GatewayStatus godoc
// @Summary Persistence gateway status
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /gateway/status [get]
func (h *SystemHandler) GatewayStatus(c *gin.Context) {
	if h.gateway == nil {
		response.JSON(c, http.StatusOK, repository.GatewayStatus{})
		return
	}
	response.JSON(c, http.StatusOK, h.gateway.Status())
}
