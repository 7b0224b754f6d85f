package service

import (
	"errors"
	"testing"
	"time"

	"downloadgateway/internal/extractor"
	"downloadgateway/internal/model"

	"github.com/stretchr/testify/assert"
)

func testConfig() *model.Config {
	return &model.Config{
		Environment: model.EnvironmentProduction,
		Server:      model.ServerConfig{Port: 8443, Debug: false},
		Auth:        model.AuthConfig{Enabled: true},
		RateLimit:   model.RateLimitConfig{Enabled: true, Requests: 30, WindowSeconds: 60},
	}
}

func TestStatusService_Projections(t *testing.T) {
	s := NewStatusService(testConfig(), returning(nil, nil))

	assert.Equal(t, AuthStatus{
		Environment:       model.EnvironmentProduction,
		AuthEnabled:       true,
		RateLimitEnabled:  true,
		RateLimitRequests: 30,
		RateLimitWindow:   60,
		Port:              8443,
		Debug:             false,
	}, s.AuthStatus())

	st := s.Status()
	assert.Equal(t, "running", st.Status)
	assert.Equal(t, RateLimitStatus{Enabled: true, MaxRequests: 30, WindowSeconds: 60}, st.RateLimit)
	assert.NotNil(t, st.Downloads)
	assert.Empty(t, st.Downloads)

	info := s.Info()
	assert.Equal(t, model.ServiceVersion, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Equal(t, 8443, info.Port)

	b := s.Banner()
	assert.True(t, b.AuthEnabled)
	assert.Equal(t, model.EnvironmentProduction, b.Environment)
}

func TestStatusService_Health(t *testing.T) {
	s := NewStatusService(testConfig(), returning(nil, nil))
	s.now = func() time.Time { return time.UnixMilli(1700000000500) }

	h := s.Health()
	assert.Equal(t, HealthHealthy, h.Status)
	assert.True(t, h.Extractor.Available)
	assert.Equal(t, 1700000000.5, h.Timestamp)
}

func TestStatusService_HealthDegradedWithoutExtractor(t *testing.T) {
	s := NewStatusService(testConfig(), extractor.Unavailable{Reason: errors.New("no worker")})

	h := s.Health()
	assert.Equal(t, HealthDegraded, h.Status)
	assert.False(t, h.Extractor.Available)
	assert.Contains(t, h.Extractor.Reason, "no worker")
}
