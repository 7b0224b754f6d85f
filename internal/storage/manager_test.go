package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"downloadgateway/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listDirs(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestBootstrap_Idempotent(t *testing.T) {
	base := t.TempDir()
	m := NewManager(&model.StorageConfig{BaseDir: base})

	assert.Empty(t, m.Bootstrap())
	first := listDirs(t, base)

	assert.Empty(t, m.Bootstrap())
	second := listDirs(t, base)

	assert.ElementsMatch(t, Roles, first)
	assert.Equal(t, first, second)
}

func TestBootstrap_FailureIsReportedNotFatal(t *testing.T) {
	base := t.TempDir()
	// A regular file where a directory is expected
	require.NoError(t, os.WriteFile(filepath.Join(base, TempDir), []byte("x"), 0o644))

	m := NewManager(&model.StorageConfig{BaseDir: base})
	errs := m.Bootstrap()

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "temp")
	assert.DirExists(t, m.Path(DownloadsDir))
	assert.DirExists(t, m.Path(VolumeDir))
	assert.DirExists(t, m.Path(LogsDir))
}

func TestScratchDir_Lifecycle(t *testing.T) {
	m := NewManager(&model.StorageConfig{BaseDir: t.TempDir()})

	dir, err := m.ScratchDir("abc")
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(m.Path(TempDir), "abc"), dir)

	require.NoError(t, m.ReleaseScratch("abc"))
	assert.NoDirExists(t, dir)
	assert.NoError(t, m.ReleaseScratch("abc"))
}

func TestDownloadDir(t *testing.T) {
	m := NewManager(&model.StorageConfig{BaseDir: "/srv"})

	assert.Equal(t, filepath.Join("/srv", "downloads"), m.DownloadDir(""))
	assert.Equal(t, filepath.Join("/srv", "downloads", "a", "b"), m.DownloadDir("a/b"))
}

func TestSweepStaleScratch_RemovesOnlyExpired(t *testing.T) {
	m := NewManager(&model.StorageConfig{BaseDir: t.TempDir(), ScratchTTLSeconds: 60})
	require.Empty(t, m.Bootstrap())

	old, err := m.ScratchDir("old")
	require.NoError(t, err)
	fresh, err := m.ScratchDir("fresh")
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Minute)
	require.NoError(t, os.Chtimes(old, past, past))

	assert.Equal(t, 1, m.SweepStaleScratch())
	assert.NoDirExists(t, old)
	assert.DirExists(t, fresh)
}

func TestStartStop(t *testing.T) {
	m := NewManager(&model.StorageConfig{BaseDir: t.TempDir(), ScratchTTLSeconds: 1, CleanupInterval: 1})
	m.Start()
	m.Stop()
	assert.NotPanics(t, m.Stop)
}
