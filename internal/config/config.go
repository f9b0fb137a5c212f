package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/vjranagit/exacorona-plot/pkg/grouper"
	"github.com/vjranagit/exacorona-plot/pkg/render"
	"github.com/vjranagit/exacorona-plot/pkg/storage"
)

// Prefix is the environment variable prefix, e.g. EXACORONA_INPUT
const Prefix = "EXACORONA"

// Config holds the application configuration
type Config struct {
	Input    string `default:"exacorona-0.csv"`
	Output   string `default:"exacorona.png"`
	Grouping string `default:"range"`
	LogLevel string `split_words:"true" default:"info"`

	Chart   ChartConfig
	Display DisplayConfig
	Archive ArchiveConfig
}

// ChartConfig holds canvas settings; zero keeps the chart library default
type ChartConfig struct {
	Width  int `default:"0"`
	Height int `default:"0"`
}

// DisplayConfig controls the interactive viewer
type DisplayConfig struct {
	Enabled         bool          `default:"false"`
	ListenAddr      string        `split_words:"true" default:"127.0.0.1:8077"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

// ArchiveConfig holds the optional series archive settings
type ArchiveConfig struct {
	Path             string
	CompressionLevel int `split_words:"true" default:"3"`
}

// DefaultConfig returns the configuration with no environment overrides
func DefaultConfig() *Config {
	return &Config{
		Input:    "exacorona-0.csv",
		Output:   "exacorona.png",
		Grouping: string(grouper.ModeRange),
		LogLevel: "info",
		Display: DisplayConfig{
			ListenAddr:      "127.0.0.1:8077",
			ShutdownTimeout: 10 * time.Second,
		},
		Archive: ArchiveConfig{
			CompressionLevel: 3,
		},
	}
}

// Load reads the configuration from the environment. Nested sections use
// their section name as an extra prefix, e.g. EXACORONA_DISPLAY_ENABLED.
// Fields carry no envconfig tag on purpose: a tagged field also falls back
// to the unprefixed name, which would pick up PATH, INPUT and the like.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("input path is required")
	}

	if c.Output == "" {
		return fmt.Errorf("output path is required")
	}

	if _, err := grouper.ParseMode(c.Grouping); err != nil {
		return err
	}

	if c.Chart.Width < 0 || c.Chart.Height < 0 {
		return fmt.Errorf("chart dimensions must not be negative")
	}

	if c.Display.Enabled && c.Display.ListenAddr == "" {
		return fmt.Errorf("listen address is required when display is enabled")
	}

	if c.Archive.CompressionLevel < 1 || c.Archive.CompressionLevel > 4 {
		return fmt.Errorf("compression level must be between 1 and 4")
	}

	return nil
}

// Mode returns the grouping mode; call Validate first
func (c *Config) Mode() grouper.Mode {
	mode, _ := grouper.ParseMode(c.Grouping)
	return mode
}

// ArchiveEnabled reports whether grouped series should be archived
func (c *Config) ArchiveEnabled() bool {
	return c.Archive.Path != ""
}

// ToStorageConfig converts to storage.Config
func (c *Config) ToStorageConfig() *storage.Config {
	return &storage.Config{
		Path:             c.Archive.Path,
		CompressionLevel: c.Archive.CompressionLevel,
	}
}

// ToRenderOptions converts to render.Options
func (c *Config) ToRenderOptions() render.Options {
	return render.Options{
		Width:  c.Chart.Width,
		Height: c.Chart.Height,
	}
}
