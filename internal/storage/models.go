package storage

import (
	"database/sql"
	"time"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

// FlightRecord is an archived flight.
type FlightRecord struct {
	ID             int64      `json:"id" csv:"id"`
	RadiosondeID   string     `json:"radiosondeID" csv:"radiosonde_id"`
	StartTime      time.Time  `json:"startTime" csv:"start_time"`
	RadioResetTime time.Time  `json:"radioResetTime" csv:"radio_reset_time"`
	LaunchTime     float64    `json:"launchTime" csv:"launch_time"`
	Operator       string     `json:"operator" csv:"operator"`
	Comments       string     `json:"comments" csv:"comments"`
	RawPath        string     `json:"rawPath" csv:"raw_path"`
	XDataPath      string     `json:"xdataPath" csv:"xdata_path"`
	CreatedAt      time.Time  `json:"createdAt" csv:"-"`
	CompletedAt    *time.Time `json:"completedAt,omitempty" csv:"-"`
}

// Flight returns the flight metadata of the record.
func (f *FlightRecord) Flight() sounding.Flight {
	return sounding.Flight{
		RadiosondeID:   f.RadiosondeID,
		StartTime:      f.StartTime,
		RadioResetTime: f.RadioResetTime,
		LaunchTime:     f.LaunchTime,
		Operator:       f.Operator,
		Comments:       f.Comments,
	}
}

// Record is one archived synchronized PTU/position record.
type Record struct {
	FlightID  int64              `json:"flightID"`
	Timestamp int64              `json:"timestamp"` // Unix seconds
	Sample    sounding.PtuSample `json:"sample"`
}

// Time returns the record timestamp.
func (r Record) Time() time.Time {
	return time.Unix(r.Timestamp, 0).UTC()
}

// XDataRecord is one archived auxiliary sensor record.
type XDataRecord struct {
	FlightID  int64                `json:"flightID"`
	Timestamp int64                `json:"timestamp"` // Unix seconds
	Sample    sounding.XDataSample `json:"sample"`
}

// Time returns the record timestamp.
func (r XDataRecord) Time() time.Time {
	return time.Unix(r.Timestamp, 0).UTC()
}

// Span describes the stored time range of one table of a flight.
type Span struct {
	First time.Time
	Last  time.Time
	Count int64
}

type recordData struct {
	FlightID      int64
	Timestamp     int64
	RxTime        float64
	Pressure      sql.NullFloat64
	Temperature   sql.NullFloat64
	Humidity      sql.NullFloat64
	WindDirection sql.NullFloat64
	WindSpeed     sql.NullFloat64
	WindNorth     sql.NullFloat64
	WindEast      sql.NullFloat64
	AscentRate    sql.NullFloat64
	Height        sql.NullFloat64
	Longitude     sql.NullFloat64
	Latitude      sql.NullFloat64
}

type xdataData struct {
	FlightID         int64
	Timestamp        int64
	RxTime           float64
	Offset           sql.NullFloat64
	InstrumentType   sql.NullFloat64
	InstrumentNumber sql.NullFloat64
	ServerTime       sql.NullFloat64
	GPSOffset        sql.NullFloat64
	Payload          string
	TWCFrequency     sql.NullFloat64
	SLWCFrequency    sql.NullFloat64
}
