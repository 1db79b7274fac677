package merge

import (
	"math"
	"strings"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

// ColumnSeparator separates the fields of an XData line.
const ColumnSeparator = "\t"

var (
	// XDataColumns is the first header row of an XData log.
	XDataColumns = []string{"    time", "offset", "InstrumentType", "InstrumentNumber", "SrvTime", "GpsOffset", "XData"}

	// XDataUnits is the second header row of an XData log.
	XDataUnits = []string{"    s", "    s", "/", "/", "    s", "    s", "Hz"}
)

// XDataHeader returns the two header rows of an XData log.
func XDataHeader() []string {
	return []string{
		strings.Join(XDataColumns, ColumnSeparator),
		strings.Join(XDataUnits, ColumnSeparator),
	}
}

// FormatXData formats one auxiliary sensor frame. The reception time is
// rounded to two decimals and every missing field is written as the
// placeholder.
func FormatXData(x sounding.XDataSample) string {
	rx := x.Time
	if !sounding.IsMissing(rx) {
		rx = math.Round(rx*100) / 100
	}

	payload := x.Payload
	if payload == "" {
		payload = sounding.Placeholder
	}

	return strings.Join([]string{
		sounding.FormatShortest(rx),
		sounding.FormatShortest(x.Offset),
		sounding.FormatShortest(x.InstrumentType),
		sounding.FormatShortest(x.InstrumentNumber),
		sounding.FormatShortest(x.ServerTime),
		sounding.FormatShortest(x.GPSOffset),
		payload,
	}, ColumnSeparator)
}
