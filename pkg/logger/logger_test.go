package logger

import (
	"os"
	"path/filepath"
	"testing"

	"downloadgateway/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func restoreLogger(t *testing.T) {
	t.Helper()
	prev := Logger
	t.Cleanup(func() { Logger = prev })
}

func TestInitWithFallback_WritesFile(t *testing.T) {
	restoreLogger(t)
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	fileErr, err := InitWithFallback(&model.LoggingConfig{Level: "info", FilePath: path})

	require.NoError(t, err)
	assert.NoError(t, fileErr)
	Logger.Info("hello")
	_ = Logger.Sync()
	assert.FileExists(t, path)
}

func TestInitWithFallback_UnusableDirectoryKeepsConsole(t *testing.T) {
	restoreLogger(t)
	base := filepath.Join(t.TempDir(), "notadir")
	require.NoError(t, os.WriteFile(base, []byte("x"), 0644))
	cfg := &model.LoggingConfig{Level: "debug", FilePath: filepath.Join(base, "logs", "app.log")}

	require.Error(t, Init(cfg))

	Logger = zap.NewNop()
	fileErr, err := InitWithFallback(cfg)

	require.NoError(t, err)
	assert.Error(t, fileErr)
	assert.True(t, Logger.Core().Enabled(zap.DebugLevel))
}
