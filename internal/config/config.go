package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	UI      UIConfig      `mapstructure:"ui"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds dashboard API configuration
type ServerConfig struct {
	URL   string `mapstructure:"url"`   // Dashboard API base URL
	Token string `mapstructure:"token"` // Bearer token
}

// SyncConfig controls background refresh
type SyncConfig struct {
	Schedule string        `mapstructure:"schedule"` // cron spec or descriptor, e.g. "@every 30s"
	Timeout  time.Duration `mapstructure:"timeout"`  // per-refresh deadline
}

// CacheConfig holds local store configuration
type CacheConfig struct {
	Dir string `mapstructure:"dir"` // empty keeps the store in memory only
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the endpoint
}

// UIConfig holds UI configuration
type UIConfig struct {
	Theme      string   `mapstructure:"theme"`
	Opener     string   `mapstructure:"opener"`      // command used to open links; empty uses the system default
	OpenerArgs []string `mapstructure:"opener_args"` // extra arguments placed before the URL
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

const (
	envPrefix       = "PERCH"
	configFileName  = "config"
	configFileType  = "yaml"
	defaultSchedule = "@every 30s"
	defaultTimeout  = 15 * time.Second
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Sync: SyncConfig{
			Schedule: defaultSchedule,
			Timeout:  defaultTimeout,
		},
		Cache: CacheConfig{
			Dir: defaultCachePath(),
		},
		UI: UIConfig{
			Theme: "default",
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "perch", "perch.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "perch", "perch.log")
	}
}

// DefaultConfigDir returns the default config directory for the current OS
func DefaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "perch")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "perch")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "perch", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "perch", "cache")
	}
}

// newViper builds a viper instance seeded with defaults so that environment
// overrides apply to every key, including ones absent from the file.
func newViper() *viper.Viper {
	v := viper.New()
	def := DefaultConfig()

	v.SetDefault("server.url", def.Server.URL)
	v.SetDefault("server.token", def.Server.Token)
	v.SetDefault("sync.schedule", def.Sync.Schedule)
	v.SetDefault("sync.timeout", def.Sync.Timeout)
	v.SetDefault("cache.dir", def.Cache.Dir)
	v.SetDefault("metrics.addr", def.Metrics.Addr)
	v.SetDefault("ui.theme", def.UI.Theme)
	v.SetDefault("ui.opener", def.UI.Opener)
	v.SetDefault("ui.opener_args", def.UI.OpenerArgs)
	v.SetDefault("logging.file", def.Logging.File)
	v.SetDefault("logging.level", def.Logging.Level)

	// Environment variable overrides: PERCH_SERVER_URL, PERCH_SYNC_SCHEDULE, ...
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from file and environment.
// An empty path searches the default config directory and the working directory.
func LoadConfig(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(DefaultConfigDir())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			// Config file not found is OK, use defaults
		case path != "" && errors.Is(err, os.ErrNotExist):
			// Explicit path that does not exist yet; it is created on save
		default:
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.Server.URL = strings.TrimRight(strings.TrimSpace(cfg.Server.URL), "/")
	cfg.Server.Token = strings.TrimSpace(cfg.Server.Token)
	if strings.TrimSpace(cfg.Sync.Schedule) == "" {
		cfg.Sync.Schedule = defaultSchedule
	}
	if cfg.Sync.Timeout <= 0 {
		cfg.Sync.Timeout = defaultTimeout
	}
	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
	cfg.Logging.File = expandHome(cfg.Logging.File)

	return cfg, nil
}

// SaveConfig writes cfg to path, or to config.yaml in the default config
// directory when path is empty.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		path = filepath.Join(DefaultConfigDir(), configFileName+"."+configFileType)
	}

	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()

	// Set fields individually to ensure correct key names (snake_case)
	v.Set("server.url", cfg.Server.URL)
	v.Set("server.token", cfg.Server.Token)
	v.Set("sync.schedule", cfg.Sync.Schedule)
	v.Set("sync.timeout", cfg.Sync.Timeout.String())
	v.Set("cache.dir", cfg.Cache.Dir)
	v.Set("metrics.addr", cfg.Metrics.Addr)
	v.Set("ui.theme", cfg.UI.Theme)
	v.Set("ui.opener", cfg.UI.Opener)
	v.Set("ui.opener_args", cfg.UI.OpenerArgs)
	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true if the server URL and token are set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != "" && c.Server.Token != ""
}

// ClearCache removes all cached data under the configured cache directory
func (c *Config) ClearCache() error {
	if c.Cache.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(c.Cache.Dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
