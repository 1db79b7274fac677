// Package config loads the YAML configuration files of the commands and
// applies SONDE_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix starts the name of every environment override.
const EnvPrefix = "SONDE_"

// Validator is implemented by the configuration of every command.
type Validator interface {
	Validate() error
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level parses the log level, INFO when it is not set.
func (s Settings) Level() (slog.Level, error) {
	var level slog.Level
	if s.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return level, NewConfigError("settings: invalid log level %q", s.LogLevel)
	}
	return level, nil
}

// LoadDotEnv loads environment variables from the given .env files. Missing
// files are skipped; variables already set are kept.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// Load decodes the YAML file at path into c, applies the environment
// overrides and validates the result. Unknown keys are rejected.
func Load(path string, c Validator, overrides ...Override) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading configuration: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err = dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return NewConfigError("%s: %s", path, err)
	}

	for _, o := range overrides {
		if err = o(); err != nil {
			return err
		}
	}

	return c.Validate()
}

// Override applies one environment variable to a configuration field.
type Override func() error

// String overrides *dst with $SONDE_<name> when it is set.
func String(name string, dst *string) Override {
	return func() error {
		if v, ok := lookup(name); ok {
			*dst = v
		}
		return nil
	}
}

// Int overrides *dst with $SONDE_<name> when it is set.
func Int(name string, dst *int) Override {
	return func() error {
		v, ok := lookup(name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return NewConfigError("%s%s: invalid integer %q", EnvPrefix, name, v)
		}
		*dst = n
		return nil
	}
}

// Bool overrides *dst with $SONDE_<name> when it is set.
func Bool(name string, dst *bool) Override {
	return func() error {
		v, ok := lookup(name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return NewConfigError("%s%s: invalid boolean %q", EnvPrefix, name, v)
		}
		*dst = b
		return nil
	}
}

// DurationVar overrides *dst with $SONDE_<name> when it is set.
func DurationVar(name string, dst *Duration) Override {
	return func() error {
		v, ok := lookup(name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return NewConfigError("%s%s: invalid duration %q", EnvPrefix, name, v)
		}
		*dst = Duration(d)
		return nil
	}
}

// List overrides *dst with the comma separated $SONDE_<name> when it is set.
func List(name string, dst *[]string) Override {
	return func() error {
		v, ok := lookup(name)
		if !ok {
			return nil
		}
		*dst = (*dst)[:0]
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				*dst = append(*dst, item)
			}
		}
		return nil
	}
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Location loads a time zone, UTC when name is empty.
func Location(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, NewConfigError("invalid time zone %q: %s", name, err)
	}
	return loc, nil
}
