// Package app implements the flightdb subcommands.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/roman-kulish/sounding-telemetry/internal/storage"
)

// Env is what every subcommand runs against.
type Env struct {
	Store    *storage.SqliteStore
	Logger   *slog.Logger
	Out      io.Writer // command output
	Progress io.Writer // progress bars, nil to disable them
}

// Command is a flightdb subcommand.
type Command interface {
	Execute(ctx context.Context, env *Env) error
}

func (env *Env) newBar(size int, description string) *progressbar.ProgressBar {
	if env.Progress == nil {
		return progressbar.DefaultSilent(int64(size), description)
	}

	w := env.Progress
	return progressbar.NewOptions(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// readFlight loads an archived flight with its records timestamped within
// [from, to]. A zero bound leaves that side open.
func readFlight(ctx context.Context, store *storage.SqliteStore, id int64, from, to time.Time) (*storage.FlightRecord, []storage.Record, []storage.XDataRecord, error) {
	var (
		recordOpts []storage.ReaderOption[storage.Record]
		xdataOpts  []storage.ReaderOption[storage.XDataRecord]
	)
	if !from.IsZero() {
		recordOpts = append(recordOpts, storage.WithStartTime[storage.Record](from))
		xdataOpts = append(xdataOpts, storage.WithStartTime[storage.XDataRecord](from))
	}
	if !to.IsZero() {
		recordOpts = append(recordOpts, storage.WithEndTime[storage.Record](to))
		xdataOpts = append(xdataOpts, storage.WithEndTime[storage.XDataRecord](to))
	}

	rr, err := store.ReadRecords(ctx, id, recordOpts...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading flight %d: %w", id, err)
	}
	defer rr.Close()

	records, err := storage.ReadAll[storage.Record](ctx, rr)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading records of flight %d: %w", id, err)
	}

	xr, err := store.ReadXData(ctx, id, xdataOpts...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading flight %d: %w", id, err)
	}
	defer xr.Close()

	xdata, err := storage.ReadAll[storage.XDataRecord](ctx, xr)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading xdata of flight %d: %w", id, err)
	}

	return rr.Flight(), records, xdata, nil
}

// parseTime accepts RFC 3339 timestamps and an empty string.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t, nil
}
