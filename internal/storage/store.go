package storage

import (
	"context"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

var (
	// ErrNoData indicates either that no records exist for the given
	// parameters, or that all available records have been read.
	ErrNoData = errors.New("no data available")

	// ErrFlightNotFound indicates that the requested flight is not archived.
	ErrFlightNotFound = errors.New("flight not found")
)

// Store provides an interface for archiving sounding flights. It handles
// flight metadata, synchronized PTU records and auxiliary sensor records.
// All write operations are atomic.
type Store interface {
	// CreateFlight archives a new flight and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - f: Flight metadata reported by the host
	//   - rawPath, xdataPath: Paths of the flight's Raw and XData logs
	//
	// Returns:
	//   - flightID: Unique identifier for the created flight
	//   - error: If creation fails, the flight already exists or context is cancelled
	CreateFlight(ctx context.Context, f sounding.Flight, rawPath, xdataPath string) (flightID int64, err error)

	// FinishFlight marks a flight completed and stores the final comments.
	//
	// Returns ErrFlightNotFound if no flight has the given ID.
	FinishFlight(ctx context.Context, flightID int64, comments string, completedAt time.Time) error

	// Flight retrieves an archived flight by its ID.
	//
	// Returns ErrFlightNotFound if no flight has the given ID.
	Flight(ctx context.Context, id int64) (*FlightRecord, error)

	// FindFlight retrieves an archived flight by radiosonde ID and start time.
	//
	// Returns ErrFlightNotFound if no such flight is archived.
	FindFlight(ctx context.Context, radiosondeID string, startTime time.Time) (*FlightRecord, error)

	// Flights returns all archived flights ordered by start time.
	Flights(ctx context.Context) ([]*FlightRecord, error)

	// StoreRecords saves synchronized records. All records are stored in a
	// single transaction.
	StoreRecords(ctx context.Context, records []Record) error

	// StoreXData saves auxiliary sensor records. All records are stored in a
	// single transaction.
	StoreXData(ctx context.Context, records []XDataRecord) error

	// Close releases all database connections and resources.
	// It is safe to call Close multiple times.
	Close() error
}
