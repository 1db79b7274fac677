package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

// maxRowsPerInsert keeps a multi-row insert below SQLite's bound parameter
// limit.
const maxRowsPerInsert = 64

// SqliteStore archives flights in a SQLite database.
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

var _ Store = (*SqliteStore)(nil)

// NewSqliteStore returns a store backed by the database file at dbPath.
// Connections are opened and the schema is initialized on first use.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}
		db.SetMaxOpenConns(1)

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	// the read-only connection cannot create the schema
	if _, err := s.getWriteDB(); err != nil {
		return nil, err
	}

	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateFlight(ctx context.Context, f sounding.Flight, rawPath, xdataPath string) (flightID int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertFlightSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx,
		f.RadiosondeID,
		f.StartTime.UTC(),
		f.RadioResetTime.UTC(),
		f.LaunchTime,
		f.Operator,
		f.Comments,
		rawPath,
		xdataPath,
	)
	if err != nil {
		err = fmt.Errorf("inserting flight: %w", err)
		return
	}

	flightID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting flight ID: %w", err)
	}
	return
}

func (s *SqliteStore) FinishFlight(ctx context.Context, flightID int64, comments string, completedAt time.Time) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	result, err := db.ExecContext(ctx, finishFlightSQL, comments, completedAt.UTC(), flightID)
	if err != nil {
		return fmt.Errorf("updating flight: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("flight %d: %w", flightID, ErrFlightNotFound)
	}
	return nil
}

func (s *SqliteStore) Flight(ctx context.Context, id int64) (*FlightRecord, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return queryFlight(ctx, db, selectFlightSQL, id)
}

func (s *SqliteStore) FindFlight(ctx context.Context, radiosondeID string, startTime time.Time) (*FlightRecord, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return queryFlight(ctx, db, selectFlightByStartSQL, radiosondeID, startTime.UTC())
}

func queryFlight(ctx context.Context, db *sql.DB, query string, args ...any) (flight *FlightRecord, err error) {
	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	flight, err = scanFlight(stmt.QueryRowContext(ctx, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFlightNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning flight: %w", err)
	}
	return flight, nil
}

func (s *SqliteStore) Flights(ctx context.Context) (flights []*FlightRecord, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectFlightsSQL)
	if err != nil {
		err = fmt.Errorf("querying flights: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var f *FlightRecord
		if f, err = scanFlight(rows); err != nil {
			err = fmt.Errorf("scanning flight: %w", err)
			return
		}
		flights = append(flights, f)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) StoreRecords(ctx context.Context, records []Record) error {
	values := make([][]any, 0, len(records))
	for _, r := range records {
		values = append(values, toRecordData(r).values())
	}
	if err := s.batchInsert(ctx, insertRecordSQL, recordPlaceholder, values); err != nil {
		return fmt.Errorf("batch inserting records: %w", err)
	}
	return nil
}

func (s *SqliteStore) StoreXData(ctx context.Context, records []XDataRecord) error {
	values := make([][]any, 0, len(records))
	for _, r := range records {
		values = append(values, toXDataData(r).values())
	}
	if err := s.batchInsert(ctx, insertXDataSQL, xdataPlaceholder, values); err != nil {
		return fmt.Errorf("batch inserting xdata: %w", err)
	}
	return nil
}

// batchInsert inserts rows with multi-row VALUES statements in a single
// transaction.
func (s *SqliteStore) batchInsert(ctx context.Context, insertSQL, placeholder string, rows [][]any) (err error) {
	if len(rows) == 0 {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	for chunk := range slices.Chunk(rows, maxRowsPerInsert) {
		var sb strings.Builder
		sb.WriteString(insertSQL)

		values := make([]any, 0, len(chunk)*len(chunk[0]))
		for i, row := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(placeholder)
			values = append(values, row...)
		}

		if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Spans returns the stored time range of the records and the xdata of a
// flight.
func (s *SqliteStore) Spans(ctx context.Context, flightID int64) (records, xdata Span, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	if records, err = querySpan(ctx, db, selectRecordsSpanSQL, flightID); err != nil {
		err = fmt.Errorf("records span: %w", err)
		return
	}
	if xdata, err = querySpan(ctx, db, selectXDataSpanSQL, flightID); err != nil {
		err = fmt.Errorf("xdata span: %w", err)
	}
	return
}

func querySpan(ctx context.Context, db *sql.DB, query string, flightID int64) (Span, error) {
	var first, last int64
	var span Span
	if err := db.QueryRowContext(ctx, query, flightID).Scan(&first, &last, &span.Count); err != nil {
		return span, err
	}
	if span.Count > 0 {
		span.First = time.Unix(first, 0).UTC()
		span.Last = time.Unix(last, 0).UTC()
	}
	return span, nil
}

// ReadRecords creates a reader over the synchronized records of a flight in
// timestamp order. The reader must be closed after use.
//
// Returns ErrFlightNotFound if the flight is not archived.
func (s *SqliteStore) ReadRecords(ctx context.Context, flightID int64, opts ...ReaderOption[Record]) (*SqliteReader[Record], error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return newSqliteReader[Record](ctx, db, flightID, opts...)
}

// ReadXData creates a reader over the auxiliary sensor records of a flight in
// timestamp order. The reader must be closed after use.
//
// Returns ErrFlightNotFound if the flight is not archived.
func (s *SqliteStore) ReadXData(ctx context.Context, flightID int64, opts ...ReaderOption[XDataRecord]) (*SqliteReader[XDataRecord], error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return newSqliteReader[XDataRecord](ctx, db, flightID, opts...)
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
