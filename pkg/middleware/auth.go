package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"downloadgateway/internal/model"
	"downloadgateway/internal/service"
	"downloadgateway/pkg/logger"
	"downloadgateway/pkg/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIKeyHeader carries the caller's API key
const APIKeyHeader = "X-API-Key"

const clientIdentityKey = "client_identity"

// AuthGate resolves the caller into a ClientIdentity or aborts the request.
// Missing keys get 401, unknown keys 403 and callers over their window 429.
func AuthGate(auth *service.AuthService, limiter *service.RateLimitService, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := auth.Authenticate(service.Credentials{
			APIKey:    apiKey(c.Request),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		if err != nil {
			switch {
			case errors.Is(err, service.ErrMissingAPIKey):
				c.Header("WWW-Authenticate", `ApiKey header="`+APIKeyHeader+`"`)
				reject(c, m, http.StatusUnauthorized, "missing_api_key", "API key is required")
			default:
				reject(c, m, http.StatusForbidden, "invalid_api_key", "API key is invalid")
			}
			return
		}

		d := limiter.Allow(identity.ClientID)
		if d.Limit >= 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		}
		if !d.Allowed {
			retry := int(math.Ceil(time.Until(d.ResetAt).Seconds()))
			c.Header("Retry-After", strconv.Itoa(max(retry, 1)))
			logger.Logger.Warn("Rate limit exceeded", zap.String("client_id", identity.ClientID))
			reject(c, m, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests. Please try again later.")
			return
		}

		c.Set(clientIdentityKey, identity)
		c.Next()
	}
}

// ClientIdentity returns the identity stored by AuthGate
func ClientIdentity(c *gin.Context) (model.ClientIdentity, bool) {
	v, ok := c.Get(clientIdentityKey)
	if !ok {
		return model.ClientIdentity{}, false
	}
	identity, ok := v.(model.ClientIdentity)
	return identity, ok
}

func apiKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		return key
	}
	authz := r.Header.Get("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}

func reject(c *gin.Context, m *metrics.Metrics, status int, code, message string) {
	m.AuthRejected(code)
	logger.Logger.Info("Request rejected by auth gate",
		zap.String("reason", code),
		zap.String("ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path))
	c.AbortWithStatusJSON(status, model.ErrorResponse{
		Error:   code,
		Message: message,
		Code:    status,
	})
}
