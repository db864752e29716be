package config

import (
	"fmt"
	"os"
	"path/filepath"

	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

const appName = "attacca"

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Cache   CacheConfig   `mapstructure:"cache"`
	UI      UIConfig      `mapstructure:"ui"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds content server configuration
type ServerConfig struct {
	URL   string `mapstructure:"url"`   // Content server URL
	Token string `mapstructure:"token"` // Bearer token
}

// CacheConfig holds performance cache configuration
type CacheConfig struct {
	Dir            string `mapstructure:"dir"`             // Cache directory, empty for default
	FetchTimeoutMS int    `mapstructure:"fetch_timeout_ms"` // Per-file fetch timeout
}

// UIConfig holds TUI configuration
type UIConfig struct {
	Theme      string `mapstructure:"theme"`
	ShowArtist bool   `mapstructure:"show_artist"`
	Viewer     string `mapstructure:"viewer"` // External file viewer, empty for system default
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{},
		Cache: CacheConfig{
			FetchTimeoutMS: 12000,
		},
		UI: UIConfig{
			Theme:      "default",
			ShowArtist: true,
		},
		Logging: LoggingConfig{
			File:  filepath.Join(DataDir(), "attacca.log"),
			Level: "INFO",
		},
	}
}

// ConfigDir returns the user config directory for the app
func ConfigDir() string {
	scope := gap.NewScope(gap.User, appName)
	dirs, err := scope.ConfigDirs()
	if err != nil || len(dirs) == 0 {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appName)
	}
	return dirs[0]
}

// DataDir returns the user data directory for the app
func DataDir() string {
	scope := gap.NewScope(gap.User, appName)
	dir, err := scope.DataPath("")
	if err != nil {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", appName)
	}
	return dir
}

// CacheDir returns the performance cache directory, honoring the config
// override
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	scope := gap.NewScope(gap.User, appName)
	dir, err := scope.CacheDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".cache", appName)
	}
	return dir
}

// ConfigFilePath returns the path of the YAML config file
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Load reads configuration from file and environment. A missing config
// file is fine; defaults apply.
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(ConfigDir())
		viper.AddConfigPath(".")
	}

	// Environment variable overrides: ATTACCA_SERVER_URL etc.
	viper.SetEnvPrefix("ATTACCA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the config file
func Save(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set("server.url", cfg.Server.URL)
	viper.Set("server.token", cfg.Server.Token)
	viper.Set("cache.dir", cfg.Cache.Dir)
	viper.Set("cache.fetch_timeout_ms", cfg.Cache.FetchTimeoutMS)
	viper.Set("ui.theme", cfg.UI.Theme)
	viper.Set("ui.show_artist", cfg.UI.ShowArtist)
	viper.Set("ui.viewer", cfg.UI.Viewer)
	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	if err := viper.WriteConfigAs(ConfigFilePath()); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// IsConfigured returns true if the server URL and token are set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != "" && c.Server.Token != ""
}
