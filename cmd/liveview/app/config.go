package app

import (
	"time"

	"github.com/roman-kulish/sounding-telemetry/internal/config"
	"github.com/roman-kulish/sounding-telemetry/internal/display"
	"github.com/roman-kulish/sounding-telemetry/internal/live"
	"github.com/roman-kulish/sounding-telemetry/internal/table"
)

// Config represents the live view configuration
type Config struct {
	Settings config.Settings `yaml:"settings"`
	Live     LiveConfig      `yaml:"live"`
	HTTP     HTTPConfig      `yaml:"http"`
}

// LiveConfig represents the refresh driver settings
type LiveConfig struct {
	Directory        string          `yaml:"directory"`
	RawPattern       string          `yaml:"rawPattern"`
	XDataPattern     string          `yaml:"xdataPattern"`
	RawHeaderLines   *int            `yaml:"rawHeaderLines"`
	XDataHeaderLines *int            `yaml:"xdataHeaderLines"`
	Interval         config.Duration `yaml:"interval"`
	MaxAttempts      int             `yaml:"maxAttempts"`
	TimeZone         string          `yaml:"timeZone"`
}

// HTTPConfig represents the dashboard server settings
type HTTPConfig struct {
	Addr        string          `yaml:"addr"`
	ImageFormat string          `yaml:"imageFormat"`
	PanelWidth  int             `yaml:"panelWidth"`
	PanelHeight int             `yaml:"panelHeight"`
	Columns     int             `yaml:"columns"`
	StaleAfter  config.Duration `yaml:"staleAfter"`
}

// LoadConfig reads the configuration at path and applies the SONDE_*
// environment overrides.
func LoadConfig(path string) (*Config, error) {
	var c Config
	err := config.Load(path, &c,
		config.String("LOG_LEVEL", &c.Settings.LogLevel),
		config.String("DATA_DIR", &c.Live.Directory),
		config.DurationVar("INTERVAL", &c.Live.Interval),
		config.String("TIME_ZONE", &c.Live.TimeZone),
		config.String("HTTP_ADDR", &c.HTTP.Addr),
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

	if c.Live.Directory == "" {
		return config.NewConfigError("liveview.Config: directory must not be empty")
	}
	if c.Live.RawPattern == "" {
		c.Live.RawPattern = live.DefaultRawPattern
	}
	if c.Live.XDataPattern == "" {
		c.Live.XDataPattern = live.DefaultXDataPattern
	}
	if c.Live.RawHeaderLines == nil {
		n := live.DefaultRawHeaderLines
		c.Live.RawHeaderLines = &n
	}
	if c.Live.XDataHeaderLines == nil {
		n := live.DefaultXDataHeaderLines
		c.Live.XDataHeaderLines = &n
	}
	if *c.Live.RawHeaderLines < 0 || *c.Live.XDataHeaderLines < 0 {
		return config.NewConfigError("liveview.Config: header lines must not be negative")
	}
	if c.Live.Interval < 0 {
		return config.NewConfigError("liveview.Config: interval must be positive")
	}
	if c.Live.Interval == 0 {
		c.Live.Interval = config.NewDuration(live.DefaultInterval)
	}
	if c.Live.MaxAttempts < 0 {
		return config.NewConfigError("liveview.Config: max attempts must be positive")
	}
	if c.Live.MaxAttempts == 0 {
		c.Live.MaxAttempts = table.DefaultMaxAttempts
	}
	if _, err := config.Location(c.Live.TimeZone); err != nil {
		return err
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if _, err := display.ParseImageFormat(c.HTTP.ImageFormat); err != nil {
		return config.NewConfigError("liveview.Config: %s", err)
	}
	if c.HTTP.PanelWidth < 0 || c.HTTP.PanelHeight < 0 || c.HTTP.Columns < 0 {
		return config.NewConfigError("liveview.Config: panel size and columns must be positive")
	}
	if c.HTTP.StaleAfter == 0 {
		c.HTTP.StaleAfter = config.NewDuration(max(display.DefaultStaleAfter, 5*c.Live.Interval.Duration()))
	}

	return nil
}

// Location returns the time zone of the logs' date/time columns.
func (c *Config) Location() *time.Location {
	loc, err := config.Location(c.Live.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
