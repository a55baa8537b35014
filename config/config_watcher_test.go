package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestConfigWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, path, "server:\n  port: 8080\n")

	cw, err := NewConfigWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer cw.Close()

	assert.Equal(t, 8080, cw.GetCurrentConfig().Server.Port)

	updates := cw.Subscribe()
	writeConfigFile(t, path, "server:\n  port: 9090\n")

	select {
	case cfg := <-updates:
		assert.Equal(t, 9090, cfg.Server.Port)
	case <-time.After(5 * time.Second):
		t.Fatal("no config update received")
	}

	assert.Equal(t, 9090, cw.GetCurrentConfig().Server.Port)
}

func TestConfigWatcherKeepsLastGoodConfigOnBadReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, path, "server:\n  port: 8080\n")

	cw, err := NewConfigWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer cw.Close()

	// An invalid rewrite must not replace the running config.
	writeConfigFile(t, path, "server:\n  port: -1\n")
	time.Sleep(500 * time.Millisecond)

	assert.Equal(t, 8080, cw.GetCurrentConfig().Server.Port)
}

func TestNewConfigWatcherMissingFile(t *testing.T) {
	_, err := NewConfigWatcher(filepath.Join(t.TempDir(), "absent.yaml"), zap.NewNop())
	assert.Error(t, err)
}
