package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/sounding-telemetry/internal/config"
	"github.com/roman-kulish/sounding-telemetry/internal/flight"
	"github.com/roman-kulish/sounding-telemetry/internal/live"
	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
	"github.com/roman-kulish/sounding-telemetry/internal/storage"
	"github.com/roman-kulish/sounding-telemetry/internal/table"
)

// ImportCmd archives finished Raw logs together with their XData logs.
type ImportCmd struct {
	Paths       []string `arg:"positional,required" help:"Raw logs, or directories holding them"`
	TimeZone    string   `arg:"--tz" help:"time zone of the date/time columns [default: UTC]"`
	MaxAttempts int      `arg:"--max-attempts" default:"10" help:"header lines tried before a log is unparsable"`
	BatchSize   int      `arg:"--batch-size" default:"500" help:"records stored per transaction"`
}

func (c *ImportCmd) Execute(ctx context.Context, env *Env) error {
	loc, err := config.Location(c.TimeZone)
	if err != nil {
		return err
	}
	if c.BatchSize <= 0 {
		return config.NewConfigError("import: batch size must be positive")
	}

	logs, err := findRawLogs(c.Paths)
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		return fmt.Errorf("no Raw logs found in %s", strings.Join(c.Paths, ", "))
	}

	bar := env.newBar(len(logs), "importing")

	var imported, skipped int
	var errs []error
	for _, path := range logs {
		if err = ctx.Err(); err != nil {
			return err
		}

		ok, err := c.importLog(ctx, env, path, loc)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
		case ok:
			imported++
		default:
			skipped++
		}
		_ = bar.Add(1)
	}

	env.Logger.Info(fmt.Sprintf("imported %d flights, %d already archived", imported, skipped))
	return errors.Join(errs...)
}

// importLog archives one flight. It returns false when the flight is already
// archived.
func (c *ImportCmd) importLog(ctx context.Context, env *Env, rawPath string, loc *time.Location) (bool, error) {
	f, err := flightFromFileName(rawPath, loc)
	if err != nil {
		return false, err
	}

	logger := env.Logger.With(slog.String("flight", f.RadiosondeID))

	if _, err = env.Store.FindFlight(ctx, f.RadiosondeID, f.StartTime); err == nil {
		logger.Debug("flight already archived", slog.String("path", rawPath))
		return false, nil
	} else if !errors.Is(err, storage.ErrFlightNotFound) {
		return false, err
	}

	raw, err := table.Parse(rawPath, table.RawSchema{Location: loc}, live.DefaultRawHeaderLines, table.WithMaxAttempts(c.MaxAttempts))
	if err != nil {
		return false, err
	}
	f.Comments = raw.Comments

	xdataPath := filepath.Join(filepath.Dir(rawPath), flight.XDataFileName(f))
	var xdata *table.Table[sounding.XDataSample]
	if _, err = os.Stat(xdataPath); err == nil {
		schema := table.XDataSchema{Epoch: f.RadioResetTime, Location: loc}
		if xdata, err = table.Parse(xdataPath, schema, live.DefaultXDataHeaderLines, table.WithMaxAttempts(c.MaxAttempts)); err != nil {
			return false, err
		}
		if xdata.MalformedFrames > 0 {
			logger.Warn(fmt.Sprintf("%d XData frames could not be decoded", xdata.MalformedFrames), slog.String("path", xdataPath))
		}
	} else {
		logger.Warn("no XData log", slog.String("path", xdataPath))
		xdataPath = ""
	}

	id, err := env.Store.CreateFlight(ctx, f, rawPath, xdataPath)
	if err != nil {
		return false, fmt.Errorf("archiving flight: %w", err)
	}

	records := make([]storage.Record, 0, raw.Len())
	for _, row := range raw.Rows {
		records = append(records, storage.Record{FlightID: id, Timestamp: row.Time, Sample: row.Sample})
	}
	for batch := range slices.Chunk(records, c.BatchSize) {
		if err = env.Store.StoreRecords(ctx, batch); err != nil {
			return false, fmt.Errorf("storing records: %w", err)
		}
	}

	xrecords := make([]storage.XDataRecord, 0, xdata.Len())
	if xdata != nil {
		for _, row := range xdata.Rows {
			xrecords = append(xrecords, storage.XDataRecord{FlightID: id, Timestamp: row.Time, Sample: row.Sample})
		}
	}
	for batch := range slices.Chunk(xrecords, c.BatchSize) {
		if err = env.Store.StoreXData(ctx, batch); err != nil {
			return false, fmt.Errorf("storing xdata: %w", err)
		}
	}

	// only a finalized log carries comments
	if raw.Comments != "" {
		completed := time.Now()
		if stat, err := os.Stat(rawPath); err == nil {
			completed = stat.ModTime()
		}
		if err = env.Store.FinishFlight(ctx, id, raw.Comments, completed); err != nil {
			return false, fmt.Errorf("finishing flight: %w", err)
		}
	}

	logger.Info("flight archived",
		slog.Int64("id", id),
		slog.String("records", humanize.Comma(int64(len(records)))),
		slog.String("xdata", humanize.Comma(int64(len(xrecords)))))
	return true, nil
}

// findRawLogs expands directories into the Raw logs they hold.
func findRawLogs(paths []string) ([]string, error) {
	var logs []string
	for _, path := range paths {
		stat, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !stat.IsDir() {
			logs = append(logs, path)
			continue
		}

		matches, err := filepath.Glob(filepath.Join(path, flight.RawPrefix+"*"))
		if err != nil {
			return nil, err
		}
		slices.Sort(matches)
		logs = append(logs, matches...)
	}
	return logs, nil
}

// flightFromFileName recovers the flight of a log named
// RawData_<start>_<sonde>.txt. Reception times are taken relative to the
// start time, as the radio reset time is not part of the logs.
func flightFromFileName(path string, loc *time.Location) (sounding.Flight, error) {
	start, err := table.EpochFromFileName(path, loc)
	if err != nil {
		return sounding.Flight{}, err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.SplitN(name, "_", 3)
	if len(parts) < 3 || parts[2] == "" {
		return sounding.Flight{}, fmt.Errorf("no radiosonde ID in file name %q", name)
	}

	return sounding.Flight{
		RadiosondeID:   parts[2],
		StartTime:      start,
		RadioResetTime: start,
	}, nil
}
