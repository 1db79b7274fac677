package merge

import (
	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
	"github.com/roman-kulish/sounding-telemetry/internal/table"
)

// Joined pairs a PTU row with the nearest XData row. XData is nil when no
// XData row lies within the join tolerance.
type Joined struct {
	Time  int64
	PTU   sounding.PtuSample
	XData *sounding.XDataSample
}

// NearestJoin attaches to every PTU row the XData row closest in time, as
// long as it is at most tolerance seconds away. It never fails: rows without
// a close enough partner are kept with a nil XData.
func NearestJoin(ptu *table.Table[sounding.PtuSample], xdata *table.Table[sounding.XDataSample], tolerance int64) []Joined {
	joined := make([]Joined, 0, ptu.Len())
	if ptu.Len() == 0 {
		return joined
	}

	for _, row := range ptu.Rows {
		j := Joined{Time: row.Time, PTU: row.Sample}

		if x, ok := xdata.Nearest(row.Time); ok && abs(x.Time-row.Time) <= tolerance {
			sample := x.Sample
			j.XData = &sample
		}

		joined = append(joined, j)
	}
	return joined
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
