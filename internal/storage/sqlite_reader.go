package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
)

// ArchivedData is a constraint for the record types a reader can return.
type ArchivedData interface {
	Record | XDataRecord
}

// Reader provides an iterator-based interface for reading archived records
// of one flight with optional time filtering.
type Reader[T ArchivedData] interface {
	// Flight returns the archived flight this reader is accessing.
	Flight() *FlightRecord

	// Next advances the iterator and returns true if there is another record
	// to read, false when the iteration is complete or if an error occurred.
	Next(context.Context) bool

	// Current returns the current record in the iteration.
	Current() T

	// Error returns any error that occurred during iteration. If Next returns
	// false, Error should be checked to distinguish between end of data and an
	// error condition.
	Error() error

	// Close releases any resources associated with the reader.
	Close() error
}

// ReaderOption configures a Reader with specific filtering criteria.
type ReaderOption[T ArchivedData] func(*SqliteReader[T])

// WithStartTime excludes records timestamped before t.
func WithStartTime[T ArchivedData](t time.Time) ReaderOption[T] {
	return func(r *SqliteReader[T]) {
		r.startTime = &t
	}
}

// WithEndTime excludes records timestamped after t.
func WithEndTime[T ArchivedData](t time.Time) ReaderOption[T] {
	return func(r *SqliteReader[T]) {
		r.endTime = &t
	}
}

// WithTimeRange sets both start and end time filters.
func WithTimeRange[T ArchivedData](startTime, endTime time.Time) ReaderOption[T] {
	return func(r *SqliteReader[T]) {
		r.startTime = &startTime
		r.endTime = &endTime
	}
}

// SqliteReader implements Reader for the SQLite archive.
type SqliteReader[T ArchivedData] struct {
	db *sql.DB

	flightID int64
	flight   *FlightRecord

	startTime *time.Time // Optional start of time range filter
	endTime   *time.Time // Optional end of time range filter

	current T
	rows    *sql.Rows
	err     error
}

var _ Reader[Record] = (*SqliteReader[Record])(nil)

func newSqliteReader[T ArchivedData](ctx context.Context, db *sql.DB, flightID int64, opts ...ReaderOption[T]) (*SqliteReader[T], error) {
	r := &SqliteReader[T]{
		db:       db,
		flightID: flightID,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return r, nil
}

func (r *SqliteReader[T]) init(ctx context.Context) error {
	if r.db == nil {
		return errors.New("database connection required")
	}
	if r.flightID <= 0 {
		return errors.New("flight ID required")
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading flight", fn: r.loadFlight},
		{msg: "initializing filters", fn: r.initFilters},
		{msg: "initializing query", fn: r.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (r *SqliteReader[T]) loadFlight(ctx context.Context) (err error) {
	r.flight, err = queryFlight(ctx, r.db, selectFlightSQL, r.flightID)
	return
}

func (r *SqliteReader[T]) initFilters(context.Context) error {
	if r.startTime != nil && r.endTime != nil && r.startTime.After(*r.endTime) {
		return fmt.Errorf("start time %s is after end time %s", r.startTime, r.endTime)
	}
	return nil
}

func (r *SqliteReader[T]) initQuery(ctx context.Context) (err error) {
	query := selectRecordsSQL
	if _, ok := any(r.current).(XDataRecord); ok {
		query = selectXDataSQL
	}

	from, to := int64(math.MinInt64), int64(math.MaxInt64)
	if r.startTime != nil {
		from = r.startTime.Unix()
	}
	if r.endTime != nil {
		to = r.endTime.Unix()
	}

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	r.rows, err = stmt.QueryContext(ctx, r.flightID, from, to)
	return
}

func (r *SqliteReader[T]) scan() (T, error) {
	var zero T
	switch any(zero).(type) {
	case XDataRecord:
		var d xdataData
		if err := r.rows.Scan(d.pointers()...); err != nil {
			return zero, fmt.Errorf("scanning xdata: %w", err)
		}
		return any(d.record()).(T), nil

	default:
		var d recordData
		if err := r.rows.Scan(d.pointers()...); err != nil {
			return zero, fmt.Errorf("scanning record: %w", err)
		}
		return any(d.record()).(T), nil
	}
}

func (r *SqliteReader[T]) Flight() *FlightRecord {
	return r.flight
}

func (r *SqliteReader[T]) Next(ctx context.Context) bool {
	if r.err != nil || r.rows == nil {
		return false
	}

	select {
	case <-ctx.Done():
		r.err = ctx.Err()
		return false
	default:
	}

	if !r.rows.Next() {
		r.err = ErrNoData
		return false
	}

	r.current, r.err = r.scan()
	return r.err == nil
}

func (r *SqliteReader[T]) Current() T {
	return r.current
}

func (r *SqliteReader[T]) Error() error {
	if r.err != nil && !errors.Is(r.err, ErrNoData) {
		return r.err
	}
	if r.rows != nil {
		return r.rows.Err()
	}
	return nil
}

func (r *SqliteReader[T]) Close() error {
	if r.rows != nil {
		err := r.rows.Close()
		r.rows = nil
		return err
	}
	return nil
}

// ReadAll drains a reader into a slice.
func ReadAll[T ArchivedData](ctx context.Context, r Reader[T]) ([]T, error) {
	var out []T
	for r.Next(ctx) {
		out = append(out, r.Current())
	}
	if err := r.Error(); err != nil {
		return out, err
	}
	return out, nil
}
