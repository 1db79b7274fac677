package merge

import (
	"strings"
	"time"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

// FormatRecord formats a merged record, as returned by Merge, back into a
// synchronized line stamped at. The GPS block is written only when the
// record carries wind.
func FormatRecord(at time.Time, p sounding.PtuSample) string {
	fields := make([]string, 0, 13)
	fields = append(fields,
		at.Format(dateTimeLayout),
		sounding.FormatValue(p.Pressure, 2),
		sounding.FormatValue(p.Temperature, 2),
		sounding.FormatValue(p.Humidity, 2),
	)

	if !sounding.IsMissing(p.WindDirection) && !sounding.IsMissing(p.WindSpeed) {
		fields = append(fields,
			sounding.FormatValue(p.WindDirection, 0),
			sounding.FormatValue(p.WindSpeed, 2),
			sounding.FormatValue(p.WindNorth, 2),
			sounding.FormatValue(p.WindEast, 2),
			sounding.FormatValue(p.Height, 0),
			sounding.FormatValue(p.Longitude, 6),
			sounding.FormatValue(p.Latitude, 6),
		)
	}

	fields = append(fields, sounding.FormatValue(p.AscentRate, 2))

	return strings.Join(fields, " ")
}
