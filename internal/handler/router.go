package handler

import (
	"downloadgateway/internal/model"
	"downloadgateway/internal/service"
	"downloadgateway/pkg/logger"
	"downloadgateway/pkg/metrics"
	"downloadgateway/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// Deps are the boot-time components the router wires together
type Deps struct {
	Config    *model.Config
	Auth      *service.AuthService
	RateLimit *service.RateLimitService
	Downloads *service.DownloadService
	Status    *service.StatusService
	Metrics   *metrics.Metrics
}

// NewRouter builds the gin engine. Every route lives under the configured
// root path; /download and /client/info sit behind the auth gate.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(logger.GinRecovery())
	router.Use(middleware.RequestID())
	router.Use(logger.GinLogger())
	router.Use(middleware.CORS())

	statusHandler := NewStatusHandler(d.Status)
	downloadHandler := NewDownloadHandler(d.Downloads)

	api := router.Group(d.Config.Server.RootPath)
	{
		api.GET("/", statusHandler.Root)
		api.GET("/health", statusHandler.Health)
		api.GET("/info", statusHandler.Info)
		api.GET("/status", statusHandler.Status)
		api.GET("/auth/status", statusHandler.AuthStatus)
		api.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

		protected := api.Group("")
		protected.Use(middleware.AuthGate(d.Auth, d.RateLimit, d.Metrics))
		protected.POST("/download", downloadHandler.Download)
		protected.GET("/client/info", downloadHandler.ClientInfo)
	}

	return router
}
