package handler

import (
	"net/http"

	"downloadgateway/internal/model"
	"downloadgateway/internal/service"
	"downloadgateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatusHandler serves the public read-only endpoints
type StatusHandler struct {
	statusService *service.StatusService
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(ss *service.StatusService) *StatusHandler {
	return &StatusHandler{statusService: ss}
}

// Root handles GET /
func (h *StatusHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, h.statusService.Banner())
}

// Health handles GET /health
func (h *StatusHandler) Health(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Logger.Error("Health check failed", zap.Any("panic", r))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  service.HealthUnhealthy,
				"service": model.ServiceName,
				"error":   "health check failed",
			})
		}
	}()
	c.JSON(http.StatusOK, h.statusService.Health())
}

// Info handles GET /info
func (h *StatusHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, h.statusService.Info())
}

// Status handles GET /status
func (h *StatusHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.statusService.Status())
}

// AuthStatus handles GET /auth/status
func (h *StatusHandler) AuthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.statusService.AuthStatus())
}
