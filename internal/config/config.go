// Package config loads the dashboard configuration.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"launchdash/internal/aggregate"
	"launchdash/internal/dataset"
)

// DefaultPath is read when no --config flag is given. A missing file means
// defaults.
const DefaultPath = "launchdash.yaml"

// Config holds all launchdash configuration.
type Config struct {
	// HTTP listen address
	Addr string `yaml:"addr"`

	// Dataset source
	Dataset DatasetConfig `yaml:"dataset"`

	// Payload range slider
	Slider aggregate.Bounds `yaml:"slider"`

	// Page title
	Title string `yaml:"title"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DatasetConfig says where the launch table comes from. DB, when set, wins
// over Source.
type DatasetConfig struct {
	Source       string `yaml:"source"`        // URL or file path of the CSV
	DB           string `yaml:"db"`            // pebble snapshot written by launchindex
	FetchTimeout string `yaml:"fetch_timeout"` // e.g. "30s"
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Addr: ":8050",
		Dataset: DatasetConfig{
			Source:       dataset.DefaultSource,
			FetchTimeout: "30s",
		},
		Slider: aggregate.DefaultBounds,
		Title:  "SpaceX Launch Data Analysis",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file, then applies environment
// overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults
	case err != nil:
		return nil, errors.Wrap(err, "read config")
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parse config")
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LAUNCHDASH_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("LAUNCHDASH_SOURCE"); v != "" {
		c.Dataset.Source = v
	}
	if v := os.Getenv("LAUNCHDASH_DB"); v != "" {
		c.Dataset.DB = v
	}
	if v := os.Getenv("LAUNCHDASH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// FetchTimeout parses Dataset.FetchTimeout, falling back to 30s.
func (c *Config) FetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Dataset.FetchTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("listen address not configured")
	}
	if c.Dataset.Source == "" && c.Dataset.DB == "" {
		return errors.New("dataset source not configured (set dataset.source or dataset.db)")
	}
	if err := c.Slider.Validate(); err != nil {
		return errors.Wrap(err, "slider")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return errors.Newf("invalid log format: %s (valid: json, console)", c.Logging.Format)
	}
	return nil
}
