// Package cli implements the sondectl commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roman-kulish/sounding-telemetry/internal/config"
	"github.com/roman-kulish/sounding-telemetry/internal/live"
	"github.com/roman-kulish/sounding-telemetry/internal/table"
)

// NewRootCmd creates the sondectl command tree. Every persistent flag can
// also be set in the --config file or as SONDE_<FLAG> in the environment.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(strings.TrimSuffix(config.EnvPrefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "sondectl",
		Short: "Inspect sounding logs while they are being written",
		Long: `sondectl inspects the Raw and XData logs of a sounding in the same way the
live view reads them: newest file first, tolerant of a line still being written.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			cfgFile := v.GetString("config")
			if cfgFile == "" {
				return nil
			}

			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("reading %s: %w", cfgFile, err)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "YAML file with flag defaults")
	flags.StringP("dir", "d", ".", "directory holding the logs")
	flags.String("raw-pattern", live.DefaultRawPattern, "glob pattern of the Raw logs")
	flags.String("xdata-pattern", live.DefaultXDataPattern, "glob pattern of the XData logs")
	flags.String("tz", "", "time zone of the date/time columns (default UTC)")
	flags.Int("max-attempts", table.DefaultMaxAttempts, "header lines tried before a log is unparsable")
	flags.String("log-level", "warn", "debug, info, warn or error")
	_ = v.BindPFlags(flags)

	root.AddCommand(
		newLatestCmd(v),
		newParseCmd(v),
		newDecodeCmd(),
		newWatchCmd(v),
	)
	return root
}

// settings are the persistent flags after the config file and the
// environment were applied.
type settings struct {
	dir          string
	rawPattern   string
	xdataPattern string
	location     *time.Location
	maxAttempts  int
	logger       *slog.Logger
}

func loadSettings(v *viper.Viper, stderr io.Writer) (*settings, error) {
	loc, err := config.Location(v.GetString("tz"))
	if err != nil {
		return nil, err
	}

	level, err := config.Settings{LogLevel: v.GetString("log-level")}.Level()
	if err != nil {
		return nil, err
	}

	s := settings{
		dir:          v.GetString("dir"),
		rawPattern:   v.GetString("raw-pattern"),
		xdataPattern: v.GetString("xdata-pattern"),
		location:     loc,
		maxAttempts:  v.GetInt("max-attempts"),
		logger:       slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
	}
	if s.maxAttempts <= 0 {
		return nil, config.NewConfigError("max-attempts must be positive")
	}
	return &s, nil
}

// pattern returns the glob pattern of a log kind.
func (s *settings) pattern(source live.Source) string {
	if source == live.SourceXData {
		return s.xdataPattern
	}
	return s.rawPattern
}

// sourceOf guesses the kind of a log from its name.
func sourceOf(path string) live.Source {
	if strings.HasPrefix(strings.ToLower(filepath.Base(path)), "xdata") {
		return live.SourceXData
	}
	return live.SourceRaw
}
