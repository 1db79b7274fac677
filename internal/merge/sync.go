// Package merge aligns the PTU and position streams of a sounding and formats
// the lines written to the flight logs.
package merge

import (
	"math"
	"strings"
	"time"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

const (
	// Header names the columns of the synchronized log.
	Header = "Date Time P T RH DD FF V U Height Lon Lat VV"

	// LineTerminator ends every line of the synchronized log.
	LineTerminator = "\r\n"

	dateTimeLayout = "2006-01-02 15:04:05"
)

// Wind derives direction and speed from the north and east components.
// ok is false when a component is missing, in which case nothing is computed.
func Wind(north, east float64) (direction, speed float64, ok bool) {
	if sounding.IsMissing(north) || sounding.IsMissing(east) {
		return sounding.MissingValue, sounding.MissingValue, false
	}

	direction = math.Atan2(-east, -north) * 180 / math.Pi
	if direction <= 0 {
		direction += 360
	}
	return direction, math.Hypot(east, north), true
}

// Aligned reports whether two reception times fall in the same rounded
// second.
func Aligned(a, b float64) bool {
	return math.Round(a) == math.Round(b)
}

// Synchronize formats the line for a PTU sample and a position sample that
// share a rounded reception time. It returns false when the times do not
// align. The date and time column is epoch plus the PTU reception time.
//
// The GPS block (wind direction, speed, components, height, longitude,
// latitude) is written only for an autonomous or differential solution with
// both wind components present; otherwise it is left out of the line.
func Synchronize(ptu sounding.PtuSample, pos sounding.PositionSample, epoch time.Time) (string, bool) {
	if !Aligned(ptu.Time, pos.Time) {
		return "", false
	}

	at := Timestamp(epoch, ptu.Time)

	fields := make([]string, 0, 13)
	fields = append(fields,
		at.Format(dateTimeLayout),
		sounding.FormatValue(ptu.Pressure, 2),
		sounding.FormatValue(ptu.Temperature, 2),
		sounding.FormatValue(ptu.Humidity, 2),
	)

	if pos.Status.HasWind() {
		if dd, ff, ok := Wind(pos.WindNorth, pos.WindEast); ok {
			fields = append(fields,
				sounding.FormatValue(dd, 0),
				sounding.FormatValue(ff, 2),
				sounding.FormatValue(pos.WindNorth, 2),
				sounding.FormatValue(pos.WindEast, 2),
				sounding.FormatValue(pos.Height, 0),
				sounding.FormatValue(pos.Longitude, 6),
				sounding.FormatValue(pos.Latitude, 6),
			)
		}
	}

	fields = append(fields, sounding.FormatValue(ptu.AscentRate, 2))

	return strings.Join(fields, " "), true
}

// Merge combines an aligned PTU and position pair into one record carrying
// the fields of the synchronized line. Fields the line leaves out stay
// missing.
func Merge(ptu sounding.PtuSample, pos sounding.PositionSample) sounding.PtuSample {
	merged := sounding.NewPtuSample(ptu.Time)
	merged.Pressure = ptu.Pressure
	merged.Temperature = ptu.Temperature
	merged.Humidity = ptu.Humidity
	merged.AscentRate = ptu.AscentRate

	if !pos.Status.HasWind() {
		return merged
	}
	if dd, ff, ok := Wind(pos.WindNorth, pos.WindEast); ok {
		merged.WindDirection = math.Round(dd)
		merged.WindSpeed = ff
		merged.WindNorth = pos.WindNorth
		merged.WindEast = pos.WindEast
		merged.Height = pos.Height
		merged.Longitude = pos.Longitude
		merged.Latitude = pos.Latitude
	}
	return merged
}

// Timestamp is the wall clock time of a reception time, truncated to the
// second as in the synchronized line.
func Timestamp(epoch time.Time, rxTime float64) time.Time {
	return epoch.Add(time.Duration(rxTime * float64(time.Second))).Truncate(time.Second)
}
