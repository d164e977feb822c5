package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 5000
)

// Config is loaded once at startup and treated as read-only afterwards.
// Environment variables take precedence over the file.
type Config struct {
	DatabasePath string       `toml:"database_path" env:"DATABASE_PATH"`
	Debug        bool         `toml:"debug" env:"FANFIC_DEBUG"`
	Web          WebConfig    `toml:"web"`
	Mirror       MirrorConfig `toml:"mirror"`
}

type WebConfig struct {
	Host string `toml:"host" env:"FANFIC_HOST"`
	Port int    `toml:"port" env:"FANFIC_PORT"`
}

// MirrorConfig describes a database kept on slow storage (a NAS share, for
// instance) that is copied to a local path before serving it.
type MirrorConfig struct {
	Source      string `toml:"source" env:"FANFIC_MIRROR_SOURCE"`
	Destination string `toml:"destination" env:"FANFIC_MIRROR_DESTINATION"`
	// Watch re-syncs the copy whenever the source changes.
	Watch bool `toml:"watch" env:"FANFIC_MIRROR_WATCH"`
}

// Enabled reports whether a mirror source is configured.
func (m MirrorConfig) Enabled() bool {
	return m.Source != ""
}

func GetDefaultConfig() (*Config, error) {
	dataDir, err := GetDefaultDataDir()
	if err != nil {
		return nil, fmt.Errorf("getting default data directory: %w", err)
	}
	return &Config{
		DatabasePath: filepath.Join(dataDir, "metadata-full.sqlite"),
		Web: WebConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
	}, nil
}

// LoadConfig reads configPath, falling back to defaults when the file does
// not exist, and applies environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	cfg, err := GetDefaultConfig()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshaling config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if cfg.Web.Host == "" {
		cfg.Web.Host = DefaultHost
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = DefaultPort
	}
	if cfg.Mirror.Enabled() && cfg.Mirror.Destination == "" {
		cfg.Mirror.Destination = cfg.DatabasePath
	}

	return cfg, nil
}

// Validate checks the settings the commands cannot work without.
func (c *Config) Validate() error {
	if c.DatabasePath == "" && !c.Mirror.Enabled() {
		return fmt.Errorf("database_path is not set")
	}
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("invalid web port %d", c.Web.Port)
	}
	return nil
}

// StorePath is the database file the web server and the admin commands open:
// the local copy when mirroring, the configured path otherwise.
func (c *Config) StorePath() string {
	if c.Mirror.Enabled() {
		return c.Mirror.Destination
	}
	return c.DatabasePath
}

// Addr returns the host:port the web server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Web.Host, c.Web.Port)
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveTemplateConfig writes the commented sample configuration.
func SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(configPath, []byte(configTemplate), 0644)
}

// GetDefaultDataDir returns the directory holding the local database copy.
func GetDefaultDataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "fanfic"), nil
}

// GetConfigDir returns the configuration directory.
func GetConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "fanfic"), nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
