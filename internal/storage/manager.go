package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"downloadgateway/internal/model"
	"downloadgateway/pkg/logger"

	"go.uber.org/zap"
)

// Directory roles created at boot, relative to the base directory
const (
	DownloadsDir = "downloads"
	TempDir      = "temp"
	VolumeDir    = "Volume"
	LogsDir      = "logs"
)

// Roles lists every directory Bootstrap ensures, in creation order
var Roles = []string{DownloadsDir, TempDir, VolumeDir, LogsDir}

// Manager owns the on-disk layout: boot directories, per-session scratch
// directories and their cleanup.
type Manager struct {
	cfg      *model.StorageConfig
	baseDir  string
	quitChan chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewManager creates a new storage manager
func NewManager(cfg *model.StorageConfig) *Manager {
	return &Manager{
		cfg:      cfg,
		baseDir:  cfg.BaseDir,
		quitChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Path returns the absolute location of a role directory
func (m *Manager) Path(role string) string {
	return filepath.Join(m.baseDir, role)
}

// Bootstrap ensures every role directory exists. It is idempotent.
// Failures are logged and returned for inspection; they never stop the boot.
func (m *Manager) Bootstrap() []error {
	var errs []error
	for _, role := range Roles {
		dir := m.Path(role)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.LogError("Failed to create directory", err, zap.String("role", role), zap.String("path", dir))
			errs = append(errs, fmt.Errorf("create %s directory: %w", role, err))
			continue
		}
		logger.LogInfo("Directory ready", zap.String("role", role), zap.String("path", dir))
	}
	return errs
}

// DownloadDir returns the output directory for an already cleaned sub path
func (m *Manager) DownloadDir(sub string) string {
	if sub == "" {
		return m.Path(DownloadsDir)
	}
	return filepath.Join(m.Path(DownloadsDir), filepath.FromSlash(sub))
}

// EnsureDownloadDir creates the output directory for sub and returns it
func (m *Manager) EnsureDownloadDir(sub string) (string, error) {
	dir := m.DownloadDir(sub)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	return dir, nil
}

// ScratchDir creates the scratch directory of a session
func (m *Manager) ScratchDir(sessionID string) (string, error) {
	dir := filepath.Join(m.Path(TempDir), sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, nil
}

// ReleaseScratch removes the scratch directory of a session
func (m *Manager) ReleaseScratch(sessionID string) error {
	return os.RemoveAll(filepath.Join(m.Path(TempDir), sessionID))
}

// Start starts the cleanup routine
func (m *Manager) Start() {
	if m.cfg.CleanupInterval <= 0 || m.cfg.ScratchTTLSeconds <= 0 {
		return
	}
	go m.cleanupRoutine()
}

// Stop stops the cleanup routine
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.quitChan) })
}

// cleanupRoutine periodically removes stale scratch entries
func (m *Manager) cleanupRoutine() {
	ticker := time.NewTicker(time.Duration(m.cfg.CleanupInterval) * time.Second)
	defer ticker.Stop()

	logger.Logger.Info("Storage cleanup routine started",
		zap.Int("cleanup_interval_seconds", m.cfg.CleanupInterval),
		zap.Int("scratch_ttl_seconds", m.cfg.ScratchTTLSeconds))

	for {
		select {
		case <-m.quitChan:
			logger.Logger.Info("Storage cleanup routine stopped")
			return
		case <-ticker.C:
			m.cleanupExpiredScratch()
		}
	}
}

// cleanupExpiredScratch removes scratch entries older than the TTL and
// returns how many were deleted.
func (m *Manager) cleanupExpiredScratch() int {
	dir := m.Path(TempDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.LogError("Failed to list scratch directory", err, zap.String("path", dir))
		}
		return 0
	}

	cutoff := m.now().Add(-time.Duration(m.cfg.ScratchTTLSeconds) * time.Second)
	deletedCount := 0
	errorCount := 0

	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.LogError("Failed to remove scratch entry", err, zap.String("path", path))
			errorCount++
			continue
		}
		deletedCount++
	}

	if deletedCount > 0 || errorCount > 0 {
		logger.Logger.Info("Storage cleanup completed",
			zap.Int("deleted_count", deletedCount),
			zap.Int("error_count", errorCount))
	}
	return deletedCount
}

// SweepStaleScratch runs one cleanup pass immediately. Boot calls it to drop
// scratch directories left behind by a previous process.
func (m *Manager) SweepStaleScratch() int {
	return m.cleanupExpiredScratch()
}
