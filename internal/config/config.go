// Package config loads the dreamctl configuration file.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Output    Output    `yaml:"output"`
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
	Lexicon   Lexicon   `yaml:"lexicon"`
	Analysis  Analysis  `yaml:"analysis"`
	Premium   Premium   `yaml:"premium"`
	RateLimit RateLimit `yaml:"ratelimit"`
	Journal   Journal   `yaml:"journal"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// Lexicon points at an override lexicon file. Empty uses the embedded tables.
type Lexicon struct {
	Path string `yaml:"path"`
}

type Analysis struct {
	Workers int `yaml:"workers"`
}

type Premium struct {
	Enforce  bool          `yaml:"enforce"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type Journal struct {
	Feeds []Feed `yaml:"feeds"`
}

// Feed is a journal feed imported into one user's dreams.
type Feed struct {
	URL       string `yaml:"url"`
	Name      string `yaml:"name"`
	User      string `yaml:"user"`
	FetchFull bool   `yaml:"fetch_full"`
}

// ConfigDir returns the XDG config directory for dream-companion.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "dream-companion")
}

// DataDir returns the XDG data directory for dream-companion.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "dream-companion")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/dream-companion/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'dreamctl init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Server:    Server{Host: "127.0.0.1", Port: 8000},
		Logging:   Logging{Level: "info", Format: "json"},
		Analysis:  Analysis{Workers: 4},
		Premium:   Premium{Enforce: true, CacheTTL: 5 * time.Minute},
		RateLimit: RateLimit{RequestsPerSecond: 2, Burst: 5},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be at least 1, got %d", c.Analysis.Workers)
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst < 1 {
		return fmt.Errorf("ratelimit requires requests_per_second > 0 and burst >= 1")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	for i, f := range c.Journal.Feeds {
		if f.URL == "" || f.User == "" {
			return fmt.Errorf("journal.feeds[%d]: url and user are required", i)
		}
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DatabasePath returns the SQLite file inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.GetDataDir(), "dreams.db")
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
