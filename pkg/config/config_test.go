package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	App    App    `mapstructure:"app"`
	Logger Logger `mapstructure:"logger"`
	API    API    `mapstructure:"api"`
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  name: slate\nlogger:\n  level: info\napi:\n  port: 8080\n"), 0o600))

	t.Setenv("API_PORT", "9090")

	var cfg sample
	require.NoError(t, Load(path, &cfg, map[string]any{"logger.encoding": "json"}))
	assert.Equal(t, "slate", cfg.App.Name)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Encoding)
	assert.Equal(t, 9090, cfg.API.Port)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	var cfg sample
	require.NoError(t, Load(filepath.Join(t.TempDir(), "absent.yaml"), &cfg, map[string]any{"api.port": 8080}))
	assert.Equal(t, 8080, cfg.API.Port)

	assert.Error(t, Load(filepath.Join(t.TempDir(), "absent.yaml"), &cfg, nil))
}
