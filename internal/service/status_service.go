package service

import (
	"runtime"
	"time"

	"downloadgateway/internal/extractor"
	"downloadgateway/internal/model"
)

// Health status values
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// AuthStatus is the auth and rate limit projection of the configuration
type AuthStatus struct {
	Environment       string `json:"environment"`
	AuthEnabled       bool   `json:"auth_enabled"`
	RateLimitEnabled  bool   `json:"rate_limit_enabled"`
	RateLimitRequests int    `json:"rate_limit_requests"`
	RateLimitWindow   int    `json:"rate_limit_window"`
	Port              int    `json:"port"`
	Debug             bool   `json:"debug"`
}

// Banner is the body of GET /
type Banner struct {
	Message     string `json:"message"`
	Environment string `json:"environment"`
	AuthEnabled bool   `json:"auth_enabled"`
	Version     string `json:"version"`
}

// ExtractorStatus reports whether downloads can be served
type ExtractorStatus struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Health is the body of GET /health
type Health struct {
	Status      string          `json:"status"`
	Service     string          `json:"service"`
	Environment string          `json:"environment"`
	AuthEnabled bool            `json:"auth_enabled"`
	Extractor   ExtractorStatus `json:"extractor"`
	Timestamp   float64         `json:"timestamp"`
}

// Info is the body of GET /info
type Info struct {
	Service          string `json:"service"`
	Version          string `json:"version"`
	Environment      string `json:"environment"`
	GoVersion        string `json:"go_version"`
	Platform         string `json:"platform"`
	AuthEnabled      bool   `json:"auth_enabled"`
	RateLimitEnabled bool   `json:"rate_limit_enabled"`
	Port             int    `json:"port"`
	Debug            bool   `json:"debug"`
}

// RateLimitStatus is nested in Status
type RateLimitStatus struct {
	Enabled       bool `json:"enabled"`
	MaxRequests   int  `json:"max_requests"`
	WindowSeconds int  `json:"window_seconds"`
}

// Status is the body of GET /status
type Status struct {
	Status      string          `json:"status"`
	Environment string          `json:"environment"`
	AuthEnabled bool            `json:"auth_enabled"`
	RateLimit   RateLimitStatus `json:"rate_limit"`
	Downloads   []string        `json:"downloads"`
	Service     string          `json:"service"`
}

// StatusService serves read-only views of the configuration.
// There is no job registry, so the download list is always empty.
type StatusService struct {
	cfg     *model.Config
	factory extractor.Factory
	now     func() time.Time
}

// NewStatusService creates a new status service
func NewStatusService(cfg *model.Config, factory extractor.Factory) *StatusService {
	return &StatusService{cfg: cfg, factory: factory, now: time.Now}
}

// Banner returns the service banner
func (s *StatusService) Banner() Banner {
	return Banner{
		Message:     model.ServiceName + " is running",
		Environment: s.cfg.Environment,
		AuthEnabled: s.cfg.AuthEnabled(),
		Version:     model.ServiceVersion,
	}
}

// Health returns the liveness view including extractor capability
func (s *StatusService) Health() Health {
	h := Health{
		Status:      HealthHealthy,
		Service:     model.ServiceName,
		Environment: s.cfg.Environment,
		AuthEnabled: s.cfg.AuthEnabled(),
		Extractor:   ExtractorStatus{Available: true},
		Timestamp:   float64(s.now().UnixMilli()) / 1000,
	}
	if err := s.factory.Available(); err != nil {
		h.Status = HealthDegraded
		h.Extractor = ExtractorStatus{Available: false, Reason: err.Error()}
	}
	return h
}

// Info returns service and runtime metadata
func (s *StatusService) Info() Info {
	return Info{
		Service:          model.ServiceName,
		Version:          model.ServiceVersion,
		Environment:      s.cfg.Environment,
		GoVersion:        runtime.Version(),
		Platform:         runtime.GOOS + "/" + runtime.GOARCH,
		AuthEnabled:      s.cfg.AuthEnabled(),
		RateLimitEnabled: s.cfg.RateLimitEnabled(),
		Port:             s.cfg.Port(),
		Debug:            s.cfg.Debug(),
	}
}

// Status returns the running state and rate limit parameters
func (s *StatusService) Status() Status {
	return Status{
		Status:      "running",
		Environment: s.cfg.Environment,
		AuthEnabled: s.cfg.AuthEnabled(),
		RateLimit: RateLimitStatus{
			Enabled:       s.cfg.RateLimitEnabled(),
			MaxRequests:   s.cfg.RateLimit.Requests,
			WindowSeconds: s.cfg.RateLimit.WindowSeconds,
		},
		Downloads: []string{},
		Service:   "initialized",
	}
}

// AuthStatus returns the auth projection
func (s *StatusService) AuthStatus() AuthStatus {
	return AuthStatus{
		Environment:       s.cfg.Environment,
		AuthEnabled:       s.cfg.AuthEnabled(),
		RateLimitEnabled:  s.cfg.RateLimitEnabled(),
		RateLimitRequests: s.cfg.RateLimit.Requests,
		RateLimitWindow:   s.cfg.RateLimit.WindowSeconds,
		Port:              s.cfg.Port(),
		Debug:             s.cfg.Debug(),
	}
}
