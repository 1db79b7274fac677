package app

import (
	"path/filepath"

	"github.com/roman-kulish/sounding-telemetry/internal/config"
	"github.com/roman-kulish/sounding-telemetry/internal/hostfeed"
	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

const defaultArchiveName = "archive.sqlite"

// Config represents the recorder configuration
type Config struct {
	Settings config.Settings `yaml:"settings"`
	Feed     FeedConfig      `yaml:"feed"`
	Recorder RecorderConfig  `yaml:"recorder"`
	Archive  ArchiveConfig   `yaml:"archive"`
	Metrics  MetricsConfig   `yaml:"metrics"`
}

// FeedConfig selects where host notifications are read from
type FeedConfig struct {
	Source                string `yaml:"source"`
	DecodeErrorsThreshold int    `yaml:"decodeErrorsThreshold"`
}

// RecorderConfig represents the flight log settings
type RecorderConfig struct {
	OutputDir     string   `yaml:"outputDir"`
	XDataSource   string   `yaml:"xdataSource"`
	Destinations  []string `yaml:"destinations"`
	StopOnFailure *bool    `yaml:"stopOnFailure"`
}

// ArchiveConfig represents the flight archive settings
type ArchiveConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Path         string `yaml:"path"`
	MaxBatchSize int    `yaml:"maxBatchSize"`
}

// MetricsConfig represents the metrics endpoint settings
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LoadConfig reads the configuration at path and applies the SONDE_*
// environment overrides.
func LoadConfig(path string) (*Config, error) {
	var c Config
	err := config.Load(path, &c,
		config.String("LOG_LEVEL", &c.Settings.LogLevel),
		config.String("FEED_SOURCE", &c.Feed.Source),
		config.String("OUTPUT_DIR", &c.Recorder.OutputDir),
		config.String("XDATA_SOURCE", &c.Recorder.XDataSource),
		config.List("DESTINATIONS", &c.Recorder.Destinations),
		config.Bool("ARCHIVE_ENABLED", &c.Archive.Enabled),
		config.String("ARCHIVE_PATH", &c.Archive.Path),
		config.String("METRICS_ADDR", &c.Metrics.Addr),
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if _, err := c.Settings.Level(); err != nil {
		return err
	}

	if c.Feed.Source == "" {
		return config.NewConfigError("recorder.Config: feed source must not be empty")
	}
	if c.Feed.DecodeErrorsThreshold < 0 {
		return config.NewConfigError("recorder.Config: decode errors threshold must be positive")
	}
	if c.Feed.DecodeErrorsThreshold == 0 {
		c.Feed.DecodeErrorsThreshold = hostfeed.DecodeErrorsThreshold
	}

	if c.Recorder.OutputDir == "" {
		return config.NewConfigError("recorder.Config: output directory must not be empty")
	}
	if _, err := c.XDataSource(); err != nil {
		return config.NewConfigError("recorder.Config: %s", err)
	}
	for _, dir := range c.Recorder.Destinations {
		if filepath.Clean(dir) == filepath.Clean(c.Recorder.OutputDir) {
			return config.NewConfigError("recorder.Config: destination %q must differ from the output directory", dir)
		}
	}
	if c.Recorder.StopOnFailure == nil {
		stop := true
		c.Recorder.StopOnFailure = &stop
	}

	if c.Archive.MaxBatchSize < 0 {
		return config.NewConfigError("recorder.Config: archive max batch size must be positive")
	}
	if c.Archive.Enabled && c.Archive.Path == "" {
		c.Archive.Path = filepath.Join(c.Recorder.OutputDir, defaultArchiveName)
	}

	return nil
}

// XDataSource returns the notification kind recorded into the XData log.
func (c *Config) XDataSource() (sounding.XDataSource, error) {
	return sounding.ParseXDataSource(c.Recorder.XDataSource)
}
