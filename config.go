package unifeed

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Storage backend names accepted in Config.Backend.
const (
	BackendBBolt  = "bbolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config carries the deployment knobs for a board context. It is plain
// data: the caller picks and opens the matching KeyValue backend.
type Config struct {
	DataDir         string   `yaml:"data_dir" toml:"data_dir"`
	Backend         string   `yaml:"backend" toml:"backend"`
	Channel         string   `yaml:"channel" toml:"channel"`
	SeedTags        []string `yaml:"seed_tags" toml:"seed_tags"`
	RefreshInterval string   `yaml:"refresh_interval" toml:"refresh_interval"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		DataDir:         ".",
		Backend:         BackendBBolt,
		Channel:         "unifeed_channel",
		RefreshInterval: "5s",
	}
}

// LoadConfig reads a YAML or TOML config file, chosen by extension, and
// fills unset fields with defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse yaml config: %w", err)
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse toml config: %w", err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.DataDir == "" {
		c.DataDir = defaults.DataDir
	}
	if c.Backend == "" {
		c.Backend = defaults.Backend
	}
	if c.Channel == "" {
		c.Channel = defaults.Channel
	}
	if c.RefreshInterval == "" {
		c.RefreshInterval = defaults.RefreshInterval
	}
}

// Validate checks backend and interval values.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendBBolt, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if _, err := time.ParseDuration(c.RefreshInterval); err != nil {
		return fmt.Errorf("invalid refresh_interval: %w", err)
	}
	return nil
}

// Interval returns the parsed refresh interval.
func (c Config) Interval() time.Duration {
	interval, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return 5 * time.Second
	}
	return interval
}
