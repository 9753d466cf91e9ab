package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("MONITOR_CONFIG", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.IncrementMinutes)
	assert.Equal(t, 10*time.Minute+30*time.Second, cfg.IdleThreshold.Std())
	assert.Equal(t, time.Minute, cfg.AlertInterval.Std())
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
increment_minutes: 5
idle_threshold: 6m
alert_interval: 30s
webhook_url: http://hooks.local/engine
thresholds:
  RPM:
    upper: 2000
    lower: 1000
    unit: rpm
`), 0o600))
	t.Setenv("MONITOR_CONFIG", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.IncrementMinutes)
	assert.Equal(t, 6*time.Minute, cfg.IdleThreshold.Std())
	assert.Equal(t, 30*time.Second, cfg.AlertInterval.Std())
	assert.Equal(t, "http://hooks.local/engine", cfg.WebhookURL)
	require.Contains(t, cfg.Thresholds, "RPM")
	assert.Equal(t, 2000.0, cfg.Thresholds["RPM"].Upper)
}

func TestLoadConfigRejectsBadIncrement(t *testing.T) {
	t.Setenv("ACTIVITY_INCREMENT_MINUTES", "-3")
	_, err := LoadConfig()
	assert.Error(t, err)
}
