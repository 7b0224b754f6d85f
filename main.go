package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"downloadgateway/config"
	"downloadgateway/internal/extractor"
	"downloadgateway/internal/handler"
	"downloadgateway/internal/model"
	"downloadgateway/internal/service"
	"downloadgateway/internal/storage"
	"downloadgateway/pkg/logger"
	"downloadgateway/pkg/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Resolve configuration; no usable profile is fatal
	res, err := config.Resolve(config.Default()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := res.Config

	// Initialize logger; a missing log file only costs the file output
	fileErr, err := logger.InitWithFallback(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	if fileErr != nil {
		logger.LogWarn("Log file unavailable, logging to stdout only",
			zap.String("path", cfg.Logging.FilePath),
			zap.Error(fileErr))
	}

	if res.FellBack() {
		skipped := make([]string, 0, len(res.Skipped))
		for _, s := range res.Skipped {
			skipped = append(skipped, s.Error())
		}
		logger.Logger.Warn("Configuration fell back",
			zap.String("provider", res.Provider),
			zap.Strings("skipped", skipped))
	} else {
		logger.Logger.Info("Configuration resolved", zap.String("provider", res.Provider))
	}

	logger.Logger.Info("Starting "+model.ServiceName,
		zap.String("environment", cfg.Environment),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("root_path", cfg.Server.RootPath),
		zap.Bool("auth_enabled", cfg.AuthEnabled()),
	)

	// Directory bootstrap never stops the boot
	storageManager := storage.NewManager(&cfg.Storage)
	if errs := storageManager.Bootstrap(); len(errs) > 0 {
		logger.LogWarn("Storage bootstrap incomplete", zap.Error(errors.Join(errs...)))
	}
	if n := storageManager.SweepStaleScratch(); n > 0 {
		logger.LogInfo("Removed stale scratch directories", zap.Int("count", n))
	}
	storageManager.Start()
	defer storageManager.Stop()

	// Extractor is resolved once; an unusable backend stays visible in /health
	factory := extractor.New(cfg.Extractor)
	if err := factory.Available(); err != nil {
		logger.Logger.Warn("Extractor unavailable, downloads are disabled", zap.Error(err))
	}

	m := metrics.New("gateway")

	// Initialize services
	rateLimitService := service.NewRateLimitService(&cfg.RateLimit)
	defer rateLimitService.Stop()

	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handler.NewRouter(handler.Deps{
		Config:    cfg,
		Auth:      service.NewAuthService(&cfg.Auth),
		RateLimit: rateLimitService,
		Downloads: service.NewDownloadService(factory, storageManager, m, cfg),
		Status:    service.NewStatusService(cfg, factory),
		Metrics:   m,
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.Timeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.Timeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Logger.Info("Server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server stopped")
}
