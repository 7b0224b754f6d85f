package service

import (
	"sync"
	"time"

	"downloadgateway/internal/model"
	"downloadgateway/pkg/logger"

	"go.uber.org/zap"
)

// RateLimitEntry tracks request rate for a client
type RateLimitEntry struct {
	Key      string
	Requests int
	ResetAt  time.Time
}

// RateLimitDecision is the result of one admission check
type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimitService enforces a fixed window of Requests per WindowSeconds per client
type RateLimitService struct {
	cfg      *model.RateLimitConfig
	limits   map[string]*RateLimitEntry
	mu       sync.Mutex
	quitChan chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(cfg *model.RateLimitConfig) *RateLimitService {
	service := &RateLimitService{
		cfg:      cfg,
		limits:   make(map[string]*RateLimitEntry),
		quitChan: make(chan struct{}),
		now:      time.Now,
	}

	if cfg.Enabled && cfg.CleanupInterval > 0 {
		go service.cleanupRoutine()
	}

	return service
}

func (rls *RateLimitService) window() time.Duration {
	return time.Duration(rls.cfg.WindowSeconds) * time.Second
}

// Allow counts one request for key and reports whether it is admitted
func (rls *RateLimitService) Allow(key string) RateLimitDecision {
	if !rls.cfg.Enabled {
		return RateLimitDecision{Allowed: true, Limit: -1, Remaining: -1}
	}

	rls.mu.Lock()
	defer rls.mu.Unlock()

	now := rls.now()
	entry, exists := rls.limits[key]

	// New client or expired window starts a fresh window
	if !exists || !now.Before(entry.ResetAt) {
		entry = &RateLimitEntry{Key: key, ResetAt: now.Add(rls.window())}
		rls.limits[key] = entry
	}

	if entry.Requests >= rls.cfg.Requests {
		logger.Logger.Warn("Rate limit exceeded",
			zap.String("client", key),
			zap.Int("requests", entry.Requests),
			zap.Int("limit", rls.cfg.Requests))
		return RateLimitDecision{Allowed: false, Limit: rls.cfg.Requests, Remaining: 0, ResetAt: entry.ResetAt}
	}

	entry.Requests++
	logger.Logger.Debug("Request allowed",
		zap.String("client", key),
		zap.Int("requests", entry.Requests),
		zap.Int("limit", rls.cfg.Requests))

	return RateLimitDecision{
		Allowed:   true,
		Limit:     rls.cfg.Requests,
		Remaining: rls.cfg.Requests - entry.Requests,
		ResetAt:   entry.ResetAt,
	}
}

// cleanupRoutine periodically cleans up old entries
func (rls *RateLimitService) cleanupRoutine() {
	ticker := time.NewTicker(time.Duration(rls.cfg.CleanupInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-rls.quitChan:
			logger.Logger.Info("Rate limit service stopped")
			return
		case <-ticker.C:
			rls.cleanup()
		}
	}
}

// cleanup removes entries whose window ended
func (rls *RateLimitService) cleanup() int {
	rls.mu.Lock()
	defer rls.mu.Unlock()

	now := rls.now()
	removed := 0

	for key, entry := range rls.limits {
		if !now.Before(entry.ResetAt) {
			delete(rls.limits, key)
			removed++
		}
	}

	if removed > 0 {
		logger.Logger.Debug("Rate limit entries cleaned up", zap.Int("removed", removed), zap.Int("remaining", len(rls.limits)))
	}
	return removed
}

// Stop stops the rate limit service
func (rls *RateLimitService) Stop() {
	rls.stopOnce.Do(func() { close(rls.quitChan) })
}
