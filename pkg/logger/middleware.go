package logger

import (
	"net/http"
	"time"

	"downloadgateway/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GinLogger returns a middleware for logging HTTP requests
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		// Process request
		c.Next()

		// Log request details
		duration := time.Since(startTime)
		statusCode := c.Writer.Status()

		Logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.RequestURI),
			zap.String("ip", c.ClientIP()),
			zap.String("request_id", c.Writer.Header().Get("X-Request-ID")),
			zap.Int("status", statusCode),
			zap.Duration("duration", duration),
			zap.Int("body_size", c.Writer.Size()),
		)
	}
}

// GinRecovery turns a handler panic into a redacted 500 response.
// The panic value is only logged.
func GinRecovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		Logger.Error("Panic while handling request",
			zap.Any("panic", recovered),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "internal_error",
			Message: "Internal server error",
			Code:    http.StatusInternalServerError,
		})
	})
}

// LogError logs an error with context
func LogError(msg string, err error, fields ...zap.Field) {
	if Logger != nil {
		Logger.Error(msg, append(fields, zap.Error(err))...)
	}
}

// LogWarn logs a warning
func LogWarn(msg string, fields ...zap.Field) {
	if Logger != nil {
		Logger.Warn(msg, fields...)
	}
}

// LogInfo logs an info message
func LogInfo(msg string, fields ...zap.Field) {
	if Logger != nil {
		Logger.Info(msg, fields...)
	}
}
