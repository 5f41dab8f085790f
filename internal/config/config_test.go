package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hue-bridge-client/internal/domain/discovery"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "huectl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Discovery.Timeout.Duration())
	assert.Equal(t, "both", cfg.Discovery.Strategy)
	assert.Equal(t, discovery.DefaultRemoteURL, cfg.Discovery.RemoteURL)
	assert.Equal(t, time.Second, cfg.Pairing.PollInterval.Duration())
	assert.Equal(t, 30*time.Second, cfg.Pairing.MaxWait.Duration())
	assert.Equal(t, 10*time.Second, cfg.HTTP.Timeout.Duration())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, strings.HasPrefix(cfg.Pairing.DeviceName, "huectl#"))
	assert.Len(t, cfg.Pairing.DeviceName, len("huectl#")+8)
	assert.NotEmpty(t, cfg.Credentials.Path)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
discovery:
  timeout: 2s
  quiet_interval: 500ms
  strategy: local
  descriptions: true
pairing:
  device_name: kitchen-panel
  max_wait: 1m
log:
  level: debug
  json: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Discovery.Timeout.Duration())
	assert.Equal(t, 500*time.Millisecond, cfg.Discovery.QuietInterval.Duration())
	assert.True(t, cfg.Discovery.Descriptions)
	s, err := cfg.Discovery.ParsedStrategy()
	require.NoError(t, err)
	assert.Equal(t, discovery.StrategyLocal, s)
	assert.Equal(t, "kitchen-panel", cfg.Pairing.DeviceName)
	assert.Equal(t, time.Minute, cfg.Pairing.MaxWait.Duration())
	assert.Equal(t, time.Second, cfg.Pairing.PollInterval.Duration())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("HUECTL_TEST_CREDS", "/tmp/creds.json")
	path := writeConfig(t, `
credentials:
  path: ${HUECTL_TEST_CREDS}
log:
  level: ${HUECTL_TEST_UNSET_LEVEL:warn}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/creds.json", cfg.Credentials.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"strategy":    "discovery:\n  strategy: carrier-pigeon\n",
		"duration":    "http:\n  timeout: soon\n",
		"device name": "pairing:\n  device_name: " + strings.Repeat("x", 41) + "\n",
		"yaml":        "discovery: [\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.NotEqual(t, DefaultDeviceName(), DefaultDeviceName())
}
