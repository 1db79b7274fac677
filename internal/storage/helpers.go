package storage

import (
	"database/sql"
	"errors"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && *err == nil && !errors.Is(cErr, sql.ErrTxDone) {
		*err = cErr
	}
}

// toNullFloat stores the missing-value sentinel as NULL.
func toNullFloat(v float64) sql.NullFloat64 {
	if sounding.IsMissing(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return sounding.MissingValue
	}
	return v.Float64
}

func toRecordData(r Record) *recordData {
	s := r.Sample
	return &recordData{
		FlightID:      r.FlightID,
		Timestamp:     r.Timestamp,
		RxTime:        s.Time,
		Pressure:      toNullFloat(s.Pressure),
		Temperature:   toNullFloat(s.Temperature),
		Humidity:      toNullFloat(s.Humidity),
		WindDirection: toNullFloat(s.WindDirection),
		WindSpeed:     toNullFloat(s.WindSpeed),
		WindNorth:     toNullFloat(s.WindNorth),
		WindEast:      toNullFloat(s.WindEast),
		AscentRate:    toNullFloat(s.AscentRate),
		Height:        toNullFloat(s.Height),
		Longitude:     toNullFloat(s.Longitude),
		Latitude:      toNullFloat(s.Latitude),
	}
}

func (d *recordData) values() []any {
	return []any{
		d.FlightID,
		d.Timestamp,
		d.RxTime,
		d.Pressure,
		d.Temperature,
		d.Humidity,
		d.WindDirection,
		d.WindSpeed,
		d.WindNorth,
		d.WindEast,
		d.AscentRate,
		d.Height,
		d.Longitude,
		d.Latitude,
	}
}

func (d *recordData) pointers() []any {
	return []any{
		&d.FlightID,
		&d.Timestamp,
		&d.RxTime,
		&d.Pressure,
		&d.Temperature,
		&d.Humidity,
		&d.WindDirection,
		&d.WindSpeed,
		&d.WindNorth,
		&d.WindEast,
		&d.AscentRate,
		&d.Height,
		&d.Longitude,
		&d.Latitude,
	}
}

func (d *recordData) record() Record {
	return Record{
		FlightID:  d.FlightID,
		Timestamp: d.Timestamp,
		Sample: sounding.PtuSample{
			Time:          d.RxTime,
			Pressure:      fromNullFloat(d.Pressure),
			Temperature:   fromNullFloat(d.Temperature),
			Humidity:      fromNullFloat(d.Humidity),
			WindDirection: fromNullFloat(d.WindDirection),
			WindSpeed:     fromNullFloat(d.WindSpeed),
			WindNorth:     fromNullFloat(d.WindNorth),
			WindEast:      fromNullFloat(d.WindEast),
			AscentRate:    fromNullFloat(d.AscentRate),
			Height:        fromNullFloat(d.Height),
			Longitude:     fromNullFloat(d.Longitude),
			Latitude:      fromNullFloat(d.Latitude),
		},
	}
}

func toXDataData(r XDataRecord) *xdataData {
	s := r.Sample
	return &xdataData{
		FlightID:         r.FlightID,
		Timestamp:        r.Timestamp,
		RxTime:           s.Time,
		Offset:           toNullFloat(s.Offset),
		InstrumentType:   toNullFloat(s.InstrumentType),
		InstrumentNumber: toNullFloat(s.InstrumentNumber),
		ServerTime:       toNullFloat(s.ServerTime),
		GPSOffset:        toNullFloat(s.GPSOffset),
		Payload:          s.Payload,
		TWCFrequency:     toNullFloat(s.TWCFrequency),
		SLWCFrequency:    toNullFloat(s.SLWCFrequency),
	}
}

func (d *xdataData) values() []any {
	return []any{
		d.FlightID,
		d.Timestamp,
		d.RxTime,
		d.Offset,
		d.InstrumentType,
		d.InstrumentNumber,
		d.ServerTime,
		d.GPSOffset,
		d.Payload,
		d.TWCFrequency,
		d.SLWCFrequency,
	}
}

func (d *xdataData) pointers() []any {
	return []any{
		&d.FlightID,
		&d.Timestamp,
		&d.RxTime,
		&d.Offset,
		&d.InstrumentType,
		&d.InstrumentNumber,
		&d.ServerTime,
		&d.GPSOffset,
		&d.Payload,
		&d.TWCFrequency,
		&d.SLWCFrequency,
	}
}

func (d *xdataData) record() XDataRecord {
	return XDataRecord{
		FlightID:  d.FlightID,
		Timestamp: d.Timestamp,
		Sample: sounding.XDataSample{
			Time:             d.RxTime,
			Offset:           fromNullFloat(d.Offset),
			InstrumentType:   fromNullFloat(d.InstrumentType),
			InstrumentNumber: fromNullFloat(d.InstrumentNumber),
			ServerTime:       fromNullFloat(d.ServerTime),
			GPSOffset:        fromNullFloat(d.GPSOffset),
			Payload:          d.Payload,
			TWCFrequency:     fromNullFloat(d.TWCFrequency),
			SLWCFrequency:    fromNullFloat(d.SLWCFrequency),
		},
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFlight(sc scanner) (*FlightRecord, error) {
	var f FlightRecord
	var completedAt sql.NullTime
	if err := sc.Scan(
		&f.ID,
		&f.RadiosondeID,
		&f.StartTime,
		&f.RadioResetTime,
		&f.LaunchTime,
		&f.Operator,
		&f.Comments,
		&f.RawPath,
		&f.XDataPath,
		&f.CreatedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		f.CompletedAt = &t
	}
	return &f, nil
}
