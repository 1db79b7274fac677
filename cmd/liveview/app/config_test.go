package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roman-kulish/sounding-telemetry/internal/config"
	"github.com/roman-kulish/sounding-telemetry/internal/display"
	"github.com/roman-kulish/sounding-telemetry/internal/live"
	"github.com/roman-kulish/sounding-telemetry/internal/table"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "liveview.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	c, err := LoadConfig(writeConfig(t, "live:\n  directory: /data/sonde\n"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if c.Live.RawPattern != live.DefaultRawPattern || c.Live.XDataPattern != live.DefaultXDataPattern {
		t.Errorf("patterns = %q, %q", c.Live.RawPattern, c.Live.XDataPattern)
	}
	if *c.Live.RawHeaderLines != 1 || *c.Live.XDataHeaderLines != 2 {
		t.Errorf("header lines = %d, %d", *c.Live.RawHeaderLines, *c.Live.XDataHeaderLines)
	}
	if c.Live.Interval.Duration() != time.Second || c.Live.MaxAttempts != table.DefaultMaxAttempts {
		t.Errorf("interval = %s, max attempts = %d", c.Live.Interval, c.Live.MaxAttempts)
	}
	if c.HTTP.Addr != ":8080" || c.HTTP.StaleAfter.Duration() != display.DefaultStaleAfter {
		t.Errorf("http = %+v", c.HTTP)
	}
	if c.Location() != time.UTC {
		t.Errorf("location = %v", c.Location())
	}
}

func TestLoadConfig_Explicit(t *testing.T) {
	c, err := LoadConfig(writeConfig(t, `
live:
  directory: /data
  rawPattern: "Raw*"
  rawHeaderLines: 0
  interval: 5s
  timeZone: Europe/Helsinki
http:
  imageFormat: jpg
`))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if c.Live.RawPattern != "Raw*" || *c.Live.RawHeaderLines != 0 {
		t.Errorf("live = %+v", c.Live)
	}
	if c.HTTP.StaleAfter.Duration() != 25*time.Second {
		t.Errorf("stale after = %s", c.HTTP.StaleAfter)
	}
	if c.Location().String() != "Europe/Helsinki" {
		t.Errorf("location = %v", c.Location())
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"no directory": "http:\n  addr: :80\n",
		"time zone":    "live:\n  directory: /data\n  timeZone: Mars/Olympus\n",
		"format":       "live:\n  directory: /data\nhttp:\n  imageFormat: gif\n",
		"header lines": "live:\n  directory: /data\n  xdataHeaderLines: -1\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, content))

			var configErr *config.ConfigError
			if !errors.As(err, &configErr) {
				t.Errorf("LoadConfig() error = %v, want a ConfigError", err)
			}
		})
	}
}
