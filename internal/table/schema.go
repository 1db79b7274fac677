package table

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

const (
	// RawColumns is the field count of a complete Raw row.
	RawColumns = 13

	// RawPtuOnlyColumns is the field count of a Raw row written without a
	// usable GPS solution: date, time, P, T, RH and ascent rate.
	RawPtuOnlyColumns = 6

	// XDataColumns is the field count of an XData row with a relative time.
	XDataColumns = 7

	// XDataDatedColumns is the field count of an XData row that starts with a
	// date and a time instead of a relative time.
	XDataDatedColumns = 8

	dateTimeLayout = "2006-01-02 15:04:05"
)

// RawSchema decodes the merged position/PTU log.
type RawSchema struct {
	Location *time.Location // time zone of the date/time columns, UTC when nil
}

func (RawSchema) Name() string {
	return "raw"
}

func (s RawSchema) Decode(fields []string) (Row[sounding.PtuSample], error) {
	if len(fields) != RawColumns && len(fields) != RawPtuOnlyColumns {
		return Row[sounding.PtuSample]{}, fmt.Errorf("%w: %d", ErrLayout, len(fields))
	}

	ts, err := parseDateTime(fields[0], fields[1], s.Location)
	if err != nil {
		return Row[sounding.PtuSample]{}, err
	}

	p := sounding.NewPtuSample(float64(ts.Unix()))
	p.Pressure = sounding.ValueOrMissing(fields[2])
	p.Temperature = sounding.ValueOrMissing(fields[3])
	p.Humidity = sounding.ValueOrMissing(fields[4])

	if len(fields) == RawPtuOnlyColumns {
		p.AscentRate = sounding.ValueOrMissing(fields[5])
	} else {
		p.WindDirection = sounding.ValueOrMissing(fields[5])
		p.WindSpeed = sounding.ValueOrMissing(fields[6])
		p.WindNorth = sounding.ValueOrMissing(fields[7])
		p.WindEast = sounding.ValueOrMissing(fields[8])
		p.Height = sounding.ValueOrMissing(fields[9])
		p.Longitude = sounding.ValueOrMissing(fields[10])
		p.Latitude = sounding.ValueOrMissing(fields[11])
		p.AscentRate = sounding.ValueOrMissing(fields[12])
	}

	return Row[sounding.PtuSample]{Time: ts.Unix(), Sample: p}, nil
}

// XDataSchema decodes the auxiliary sensor log. Relative reception times are
// resolved against Epoch.
type XDataSchema struct {
	Epoch    time.Time
	Location *time.Location // time zone of dated rows, UTC when nil
}

func (XDataSchema) Name() string {
	return "xdata"
}

func (s XDataSchema) Decode(fields []string) (Row[sounding.XDataSample], error) {
	var (
		x    sounding.XDataSample
		ts   time.Time
		rest []string
	)

	switch len(fields) {
	case XDataColumns:
		rx, err := sounding.ParseValue(fields[0])
		if err != nil || sounding.IsMissing(rx) {
			return Row[sounding.XDataSample]{}, fmt.Errorf("%w: %q", ErrTimestamp, fields[0])
		}
		x.Time = rx
		ts = s.Epoch.Add(time.Duration(rx * float64(time.Second)))
		rest = fields[1:]

	case XDataDatedColumns:
		var err error
		if ts, err = parseDateTime(fields[0], fields[1], s.Location); err != nil {
			return Row[sounding.XDataSample]{}, err
		}
		x.Time = float64(ts.Unix())
		rest = fields[2:]

	default:
		return Row[sounding.XDataSample]{}, fmt.Errorf("%w: %d", ErrLayout, len(fields))
	}

	x.Offset = sounding.ValueOrMissing(rest[0])
	x.InstrumentType = sounding.ValueOrMissing(rest[1])
	x.InstrumentNumber = sounding.ValueOrMissing(rest[2])
	x.ServerTime = sounding.ValueOrMissing(rest[3])
	x.GPSOffset = sounding.ValueOrMissing(rest[4])

	row := Row[sounding.XDataSample]{Time: ts.Unix()}

	if sounding.IsPlaceholder(rest[5]) {
		x.TWCFrequency, x.SLWCFrequency = sounding.MissingValue, sounding.MissingValue
		row.Sample = x
		return row, nil
	}

	x.Payload = rest[5]
	err := x.Decode()
	row.Sample = x
	return row, err
}

func parseDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	ts, err := time.ParseInLocation(dateTimeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrTimestamp, err)
	}
	return ts, nil
}

// EpochFromFileName extracts the start time stamp from a log name such as
// RawData_20211123101500_S1234567.txt.
func EpochFromFileName(path string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("no start time in file name %q", name)
	}

	ts, err := time.ParseInLocation(sounding.StampLayout, parts[1], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing start time in file name %q: %w", name, err)
	}
	return ts, nil
}
