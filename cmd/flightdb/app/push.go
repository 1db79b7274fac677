package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roman-kulish/sounding-telemetry/internal/config"
	"github.com/roman-kulish/sounding-telemetry/internal/storage"
)

var zeroTime time.Time

// PushCmd copies archived flights into PostgreSQL.
type PushCmd struct {
	Flights []int64 `arg:"positional" help:"archived flight IDs"`
	All     bool    `arg:"--all" help:"push every archived flight"`
	DSN     string  `arg:"--dsn,env:SONDE_POSTGRES_DSN" help:"PostgreSQL connection string"`
}

func (c *PushCmd) Execute(ctx context.Context, env *Env) error {
	if c.DSN == "" {
		return config.NewConfigError("push: no PostgreSQL connection string, set --dsn or SONDE_POSTGRES_DSN")
	}
	if c.All == (len(c.Flights) > 0) {
		return config.NewConfigError("push: pass flight IDs or --all")
	}

	ids := c.Flights
	if c.All {
		flights, err := env.Store.Flights(ctx)
		if err != nil {
			return fmt.Errorf("listing flights: %w", err)
		}
		for _, f := range flights {
			ids = append(ids, f.ID)
		}
	}

	sink, err := storage.NewPostgresSink(ctx, c.DSN, storage.WithPostgresLogger(env.Logger))
	if err != nil {
		return err
	}
	defer sink.Close()

	if err = sink.EnsureSchema(ctx); err != nil {
		return err
	}

	bar := env.newBar(len(ids), "pushing")

	var rows int64
	for _, id := range ids {
		f, records, xdata, err := readFlight(ctx, env.Store, id, zeroTime, zeroTime)
		if err != nil {
			return err
		}

		n, err := sink.PushFlight(ctx, f, records, xdata)
		if err != nil {
			return fmt.Errorf("pushing flight %d: %w", id, err)
		}
		rows += n
		_ = bar.Add(1)
	}

	env.Logger.Info("flights pushed", slog.Int("flights", len(ids)), slog.Int64("rows", rows))
	return nil
}
