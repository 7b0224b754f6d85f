package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"downloadgateway/internal/model"
	"downloadgateway/internal/service"
	"downloadgateway/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newGatedRouter(t *testing.T, authCfg model.AuthConfig, rlCfg model.RateLimitConfig) (*gin.Engine, *metrics.Metrics) {
	t.Helper()
	rls := service.NewRateLimitService(&rlCfg)
	t.Cleanup(rls.Stop)
	m := metrics.New("test")

	r := gin.New()
	r.Use(RequestID())
	r.GET("/whoami", AuthGate(service.NewAuthService(&authCfg), rls, m), func(c *gin.Context) {
		identity, ok := ClientIdentity(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, identity)
	})
	return r, m
}

func keyedAuth() model.AuthConfig {
	return model.AuthConfig{
		Enabled: true,
		APIKeys: []model.APIKey{{Key: "secret", ClientID: "client-1", Name: "ci"}},
	}
}

func get(r http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestAuthGate_Rejections(t *testing.T) {
	r, m := newGatedRouter(t, keyedAuth(), model.RateLimitConfig{Enabled: true, Requests: 10, WindowSeconds: 60})

	w := get(r, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing_api_key", decodeError(t, w).Error)
	assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))

	w = get(r, map[string]string{APIKeyHeader: "wrong"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "invalid_api_key", body.Error)
	assert.Equal(t, http.StatusForbidden, body.Code)

	exposed := scrape(t, m)
	assert.Contains(t, exposed, `test_auth_rejections_total{reason="missing_api_key"} 1`)
	assert.Contains(t, exposed, `test_auth_rejections_total{reason="invalid_api_key"} 1`)
}

func TestAuthGate_AcceptsHeaderAndBearer(t *testing.T) {
	r, _ := newGatedRouter(t, keyedAuth(), model.RateLimitConfig{Enabled: true, Requests: 10, WindowSeconds: 60})

	for _, headers := range []map[string]string{
		{APIKeyHeader: "secret"},
		{"Authorization": "Bearer secret"},
	} {
		w := get(r, headers)
		require.Equal(t, http.StatusOK, w.Code)

		var identity model.ClientIdentity
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &identity))
		assert.Equal(t, "client-1", identity.ClientID)
		assert.Equal(t, "ci", identity.Metadata["key_name"])
		assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestAuthGate_RateLimited(t *testing.T) {
	r, m := newGatedRouter(t, keyedAuth(), model.RateLimitConfig{Enabled: true, Requests: 2, WindowSeconds: 60})
	headers := map[string]string{APIKeyHeader: "secret"}

	assert.Equal(t, http.StatusOK, get(r, headers).Code)
	w := get(r, headers)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = get(r, headers)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limit_exceeded", decodeError(t, w).Error)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, scrape(t, m), `test_auth_rejections_total{reason="rate_limit_exceeded"} 1`)
}

func TestAuthGate_DisabledUsesClientIP(t *testing.T) {
	r, _ := newGatedRouter(t, model.AuthConfig{Enabled: false}, model.RateLimitConfig{Enabled: false, Requests: 1, WindowSeconds: 1})

	w := get(r, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))

	var identity model.ClientIdentity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &identity))
	assert.Equal(t, "ip:192.0.2.1", identity.ClientID)
	assert.Equal(t, service.AuthMethodNone, identity.Metadata["auth_method"])
}

func TestRequestID(t *testing.T) {
	r, _ := newGatedRouter(t, model.AuthConfig{}, model.RateLimitConfig{Requests: 1, WindowSeconds: 1})

	generated := get(r, nil).Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	kept := get(r, map[string]string{RequestIDHeader: "abc-123"}).Header().Get(RequestIDHeader)
	assert.Equal(t, "abc-123", kept)
}

func TestCORS_EchoesOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_PreflightEchoesRequestedHeaders(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.POST("/download", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/download", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "x-api-key,content-type")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "x-api-key,content-type", w.Header().Get("Access-Control-Allow-Headers"))
	assert.NotEqual(t, "*", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
