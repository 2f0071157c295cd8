package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchdash/internal/aggregate"
	"launchdash/internal/dataset"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8050", cfg.Addr)
	assert.Equal(t, dataset.DefaultSource, cfg.Dataset.Source)
	assert.Equal(t, aggregate.DefaultBounds, cfg.Slider)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout())
	require.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launchdash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: "127.0.0.1:9000"
dataset:
  source: ./launches.csv
  fetch_timeout: 5s
slider:
  min: 0
  max: 20000
  step: 2500
logging:
  level: debug
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "./launches.csv", cfg.Dataset.Source)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout())
	assert.Equal(t, aggregate.Bounds{Min: 0, Max: 20000, Step: 2500}, cfg.Slider)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "SpaceX Launch Data Analysis", cfg.Title, "unset keys keep defaults")
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launchdash.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: [unterminated"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LAUNCHDASH_ADDR", ":7000")
	t.Setenv("LAUNCHDASH_SOURCE", "/data/launches.csv")
	t.Setenv("LAUNCHDASH_DB", "/data/launches.db")
	t.Setenv("LAUNCHDASH_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "/data/launches.csv", cfg.Dataset.Source)
	assert.Equal(t, "/data/launches.db", cfg.Dataset.DB)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := DefaultConfig()
	cfg.Addr = ":1234"
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no addr", func(c *Config) { c.Addr = "" }},
		{"no source", func(c *Config) { c.Dataset.Source = ""; c.Dataset.DB = "" }},
		{"inverted slider", func(c *Config) { c.Slider.Min, c.Slider.Max = 10, 0 }},
		{"zero step", func(c *Config) { c.Slider.Step = 0 }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultConfig()
	cfg.Dataset.Source = ""
	cfg.Dataset.DB = "launches.db"
	assert.NoError(t, cfg.Validate())
}

func TestFetchTimeout_Fallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dataset.FetchTimeout = "soon"
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout())
}
