package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := LoadConfig(filepath.Join(home, "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, defaultSchedule, cfg.Sync.Schedule)
	assert.Equal(t, defaultTimeout, cfg.Sync.Timeout)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.False(t, cfg.IsConfigured())
}

func TestLoadConfig_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  url: "  http://dash.local:8080/  "
  token: secret
sync:
  schedule: "@every 1m"
  timeout: 5s
cache:
  dir: ""
metrics:
  addr: ":9100"
ui:
  theme: green
  opener: firefox
  opener_args: ["--new-tab"]
logging:
  level: debug
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://dash.local:8080", cfg.Server.URL)
	assert.Equal(t, "secret", cfg.Server.Token)
	assert.Equal(t, "@every 1m", cfg.Sync.Schedule)
	assert.Equal(t, 5*time.Second, cfg.Sync.Timeout)
	assert.Empty(t, cfg.Cache.Dir)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.Equal(t, "green", cfg.UI.Theme)
	assert.Equal(t, "firefox", cfg.UI.Opener)
	assert.Equal(t, []string{"--new-tab"}, cfg.UI.OpenerArgs)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.IsConfigured())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  url: http://file\n"), 0o600))

	t.Setenv("PERCH_SERVER_URL", "http://env")
	t.Setenv("PERCH_SERVER_TOKEN", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env", cfg.Server.URL)
	assert.Equal(t, "from-env", cfg.Server.Token)
}

func TestLoadConfig_InvalidYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [\n"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadConfig_BlankScheduleFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sync:\n  schedule: \"  \"\n  timeout: 0s\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, defaultSchedule, cfg.Sync.Schedule)
	assert.Equal(t, defaultTimeout, cfg.Sync.Timeout)
}

func TestLoadConfig_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  dir: ~/cache\nlogging:\n  file: ~/perch.log\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "cache"), cfg.Cache.Dir)
	assert.Equal(t, filepath.Join(home, "perch.log"), cfg.Logging.File)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.URL = "http://dash"
	cfg.Server.Token = "tok"
	cfg.Sync.Timeout = 7 * time.Second
	cfg.Cache.Dir = ""
	cfg.UI.Opener = "xdg-open"

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://dash", loaded.Server.URL)
	assert.Equal(t, "tok", loaded.Server.Token)
	assert.Equal(t, 7*time.Second, loaded.Sync.Timeout)
	assert.Empty(t, loaded.Cache.Dir)
	assert.Equal(t, "xdg-open", loaded.UI.Opener)
}

func TestClearCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "abc"), 0o755))

	cfg := &Config{Cache: CacheConfig{Dir: dir}}
	require.NoError(t, cfg.ClearCache())

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, (&Config{}).ClearCache())
}
