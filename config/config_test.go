package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "continuum.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadFromFileDefaults(t *testing.T) {
	path := writeConfigFile(t, "")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "continuum.db", cfg.Database.Path)
	assert.Equal(t, 1, cfg.Scheduler.TickIntervalSeconds)
	assert.Equal(t, 60, cfg.Scheduler.DebounceSeconds)
	assert.True(t, cfg.Delivery.SimulationEnabled)
	assert.False(t, cfg.Bridge.Configured())
	assert.False(t, cfg.Agent.Configured())
}

func TestLoadFromFileOverrides(t *testing.T) {
	path := writeConfigFile(t, `
[bridge]
url = "http://localhost:8100"
api_key = "secret"

[agent]
base_url = "https://agent.example.com"

[scheduler]
tick_interval_seconds = 2
debounce_seconds = 120
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.True(t, cfg.Bridge.Configured())
	assert.Equal(t, "http://localhost:8100", cfg.Bridge.URL)
	assert.True(t, cfg.Agent.Configured())
	assert.Equal(t, 2, cfg.Scheduler.TickIntervalSeconds)
}

func TestValidateRejectsTickSlowerThanDebounce(t *testing.T) {
	path := writeConfigFile(t, `
[scheduler]
tick_interval_seconds = 90
debounce_seconds = 60
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not exceed")
}

func TestValidateRejectsZeroTick(t *testing.T) {
	cfg := &Config{}
	cfg.Scheduler.TickIntervalSeconds = 0
	cfg.Scheduler.DebounceSeconds = 60
	cfg.Delivery.TimeoutSeconds = 30
	require.Error(t, cfg.Validate())
}
