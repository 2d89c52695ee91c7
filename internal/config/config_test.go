// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 8001, cfg.APIPort)
	assert.Equal(t, 8000, cfg.GUIPort)
	assert.Equal(t, "localhost", cfg.Host)
	assert.True(t, cfg.OpenBrowser)
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
api_port: 9001
log_level: info
open_browser: false
api:
  command: /opt/fmu/bin/api
  args: ["--workers", "2"]
  env:
    FOO: bar
startup_timeout: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.APIPort)
	assert.Equal(t, DefaultGUIPort, cfg.GUIPort)
	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.OpenBrowser)
	assert.Equal(t, "/opt/fmu/bin/api", cfg.API.Command)
	assert.Equal(t, []string{"--workers", "2"}, cfg.API.Args)
	assert.Equal(t, map[string]string{"FOO": "bar"}, cfg.API.Env)
	assert.Equal(t, DefaultGUICommand, cfg.GUI.Command)
	assert.Equal(t, 10*time.Second, cfg.StartupTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShutdownGrace)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_port: 70000\nlog_level: loud\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_port")
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoadRejectsZeroDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("startup_timeout: 0s\nshutdown_grace: 0s\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup_timeout must be positive")
	assert.Contains(t, err.Error(), "shutdown_grace must be positive")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_port: [\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.GUIPort = 5173
	cfg.GUI.StaticDir = "/srv/fmu-gui"

	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestSaveRefusesInvalidConfig(t *testing.T) {
	cfg := Default()
	cfg.API.Command = " "
	err := Save(filepath.Join(t.TempDir(), "config.yaml"), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.command")
}

func TestValidateLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "warning", "error", "critical"} {
		assert.NoError(t, ValidateLogLevel(level), level)
	}
	assert.Error(t, ValidateLogLevel("warn"))
	assert.Error(t, ValidateLogLevel(""))
}

func TestIsRegisteredGUIPort(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.IsRegisteredGUIPort(8000))
	assert.True(t, cfg.IsRegisteredGUIPort(5173))
	assert.True(t, cfg.IsRegisteredGUIPort(3000))
	assert.False(t, cfg.IsRegisteredGUIPort(9999))
}

func TestResolvePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ResolvePath("~/gui/dist")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "gui", "dist"), got)

	got, err = ResolvePath("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)
}
