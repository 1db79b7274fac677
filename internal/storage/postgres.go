package storage

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

//go:embed postgres.sql
var postgresSchemaSQL string

var (
	recordsTable  = pgx.Identifier{"sounding", "records"}
	xdataTable    = pgx.Identifier{"sounding", "xdata"}
	recordColumns = []string{
		"flight_id", "obstime", "rx_time",
		"pressure", "temperature", "humidity",
		"wind_direction", "wind_speed", "wind_north", "wind_east",
		"ascent_rate", "height", "longitude", "latitude",
	}
	xdataColumns = []string{
		"flight_id", "obstime", "rx_time",
		"time_offset", "instrument_type", "instrument_number",
		"server_time", "gps_offset", "payload",
		"twc_frequency", "slwc_frequency",
	}
)

const upsertFlightSQL = `
INSERT INTO sounding.flights (radiosonde_id, start_time, radio_reset_time, launch_time, operator, comments, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (radiosonde_id, start_time) DO UPDATE
    SET radio_reset_time = EXCLUDED.radio_reset_time,
        launch_time      = EXCLUDED.launch_time,
        operator         = EXCLUDED.operator,
        comments         = EXCLUDED.comments,
        completed_at     = EXCLUDED.completed_at
RETURNING id`

// PostgresSink copies archived flights into a PostgreSQL database. Pushing a
// flight again replaces its records.
type PostgresSink struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// PostgresOption configures a PostgresSink.
type PostgresOption func(*PostgresSink)

// WithPostgresLogger sets the sink logger.
func WithPostgresLogger(logger *slog.Logger) PostgresOption {
	return func(s *PostgresSink) {
		s.logger = logger.With("component", "postgres")
	}
}

// NewPostgresSink connects to the database at dsn.
func NewPostgresSink(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	s := &PostgresSink{
		pool:   pool,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// EnsureSchema creates the sounding schema if it does not exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchemaSQL); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// PushFlight upserts the flight and replaces its records and xdata in one
// transaction. It returns the number of rows copied.
func (s *PostgresSink) PushFlight(ctx context.Context, f *FlightRecord, records []Record, xdata []XDataRecord) (n int64, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var remoteID int64
	if err = tx.QueryRow(ctx, upsertFlightSQL,
		f.RadiosondeID,
		f.StartTime.UTC(),
		f.RadioResetTime.UTC(),
		f.LaunchTime,
		f.Operator,
		f.Comments,
		f.CompletedAt,
	).Scan(&remoteID); err != nil {
		return 0, fmt.Errorf("upserting flight: %w", err)
	}

	for _, table := range []string{"sounding.records", "sounding.xdata"} {
		if _, err = tx.Exec(ctx, "DELETE FROM "+table+" WHERE flight_id = $1", remoteID); err != nil {
			return 0, fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	count, err := tx.CopyFrom(ctx, recordsTable, recordColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			return recordRow(remoteID, records[i]), nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copying records: %w", err)
	}
	n += count

	count, err = tx.CopyFrom(ctx, xdataTable, xdataColumns,
		pgx.CopyFromSlice(len(xdata), func(i int) ([]any, error) {
			return xdataRow(remoteID, xdata[i]), nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copying xdata: %w", err)
	}
	n += count

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	if want := int64(len(records) + len(xdata)); n != want {
		s.logger.Warn("partial copy", "flight", f.RadiosondeID, "copied", n, "want", want)
	} else {
		s.logger.Info("flight pushed", "flight", f.RadiosondeID, "rows", n)
	}
	return n, nil
}

// Close closes all pool connections.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}

func recordRow(flightID int64, r Record) []any {
	p := r.Sample
	return []any{
		flightID,
		r.Time(),
		p.Time,
		sounding.Value(p.Pressure),
		sounding.Value(p.Temperature),
		sounding.Value(p.Humidity),
		sounding.Value(p.WindDirection),
		sounding.Value(p.WindSpeed),
		sounding.Value(p.WindNorth),
		sounding.Value(p.WindEast),
		sounding.Value(p.AscentRate),
		sounding.Value(p.Height),
		sounding.Value(p.Longitude),
		sounding.Value(p.Latitude),
	}
}

func xdataRow(flightID int64, r XDataRecord) []any {
	x := r.Sample
	return []any{
		flightID,
		r.Time(),
		x.Time,
		sounding.Value(x.Offset),
		sounding.Value(x.InstrumentType),
		sounding.Value(x.InstrumentNumber),
		sounding.Value(x.ServerTime),
		sounding.Value(x.GPSOffset),
		x.Payload,
		sounding.Value(x.TWCFrequency),
		sounding.Value(x.SLWCFrequency),
	}
}
