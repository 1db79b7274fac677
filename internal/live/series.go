package live

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
	"github.com/roman-kulish/sounding-telemetry/internal/table"
)

// PanelID names one panel of the live view.
type PanelID string

const (
	Pressure      PanelID = "pressure"
	Temperature   PanelID = "temperature"
	Humidity      PanelID = "humidity"
	WindSpeed     PanelID = "wind-speed"
	WindDirection PanelID = "wind-direction"
	TWC           PanelID = "twc"
	SLWC          PanelID = "slwc"
	Position      PanelID = "position"
)

// Axis is a set of plot axes.
type Axis uint8

const (
	AxisX Axis = 1 << iota
	AxisY

	AxisXY = AxisX | AxisY
)

// Point is one plotted value. X is a unix timestamp on time panels and a
// longitude on the position panel. A NaN coordinate is a gap.
type Point struct {
	X float64
	Y float64
}

// IsGap reports whether the point breaks the line.
func (p Point) IsGap() bool {
	return math.IsNaN(p.X) || math.IsNaN(p.Y)
}

// MarshalJSON encodes the point as [x, y], with null for a NaN coordinate.
func (p Point) MarshalJSON() ([]byte, error) {
	b := append(make([]byte, 0, 32), '[')
	b = appendCoordinate(b, p.X)
	b = append(b, ',')
	b = appendCoordinate(b, p.Y)
	return append(b, ']'), nil
}

// UnmarshalJSON decodes [x, y]; a null coordinate becomes NaN.
func (p *Point) UnmarshalJSON(data []byte) error {
	var xy [2]*float64
	if err := json.Unmarshal(data, &xy); err != nil {
		return err
	}

	p.X, p.Y = math.NaN(), math.NaN()
	if xy[0] != nil {
		p.X = *xy[0]
	}
	if xy[1] != nil {
		p.Y = *xy[1]
	}
	return nil
}

func appendCoordinate(b []byte, v float64) []byte {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return append(b, "null"...)
	}
	return strconv.AppendFloat(b, v, 'f', -1, 64)
}

// Series is the data of one panel.
type Series struct {
	Panel  PanelID `json:"panel"`
	Title  string  `json:"title"`
	XLabel string  `json:"xLabel"`
	YLabel string  `json:"yLabel"`
	Time   bool    `json:"time"` // X holds unix timestamps
	Points []Point `json:"points"`
}

// LockAxes returns the axes whose auto-range is disabled once the view is
// locked: Y on time panels, both on the position track.
func (s Series) LockAxes() Axis {
	if s.Time {
		return AxisY
	}
	return AxisXY
}

// PanelSpec describes how a panel is fed.
type PanelSpec struct {
	ID     PanelID
	Title  string
	YLabel string
	Source Source
}

// Source is the log a panel is fed from.
type Source string

const (
	SourceRaw   Source = "raw"
	SourceXData Source = "xdata"
)

// Panels lists the eight panels of the live view in display order.
var Panels = []PanelSpec{
	{ID: Temperature, Title: "Temperature", YLabel: "°C", Source: SourceRaw},
	{ID: Humidity, Title: "Humidity", YLabel: "%", Source: SourceRaw},
	{ID: Pressure, Title: "Pressure", YLabel: "hPa", Source: SourceRaw},
	{ID: WindSpeed, Title: "Wind speed", YLabel: "m/s", Source: SourceRaw},
	{ID: WindDirection, Title: "Wind direction", YLabel: "°", Source: SourceRaw},
	{ID: Position, Title: "Position", YLabel: "Latitude", Source: SourceRaw},
	{ID: TWC, Title: "TWC frequency", YLabel: "kHz", Source: SourceXData},
	{ID: SLWC, Title: "SLWC frequency", YLabel: "kHz", Source: SourceXData},
}

// Spec returns the description of a panel.
func Spec(id PanelID) (PanelSpec, bool) {
	for _, p := range Panels {
		if p.ID == id {
			return p, true
		}
	}
	return PanelSpec{}, false
}

func coordinate(v float64) float64 {
	if sounding.IsMissing(v) {
		return math.NaN()
	}
	return v
}

func timeSeries[T any](spec PanelSpec, t *table.Table[T], value func(T) float64) Series {
	s := Series{
		Panel:  spec.ID,
		Title:  spec.Title,
		XLabel: "Time",
		YLabel: spec.YLabel,
		Time:   true,
		Points: make([]Point, 0, t.Len()),
	}
	if t == nil {
		return s
	}
	for _, row := range t.Rows {
		s.Points = append(s.Points, Point{X: float64(row.Time), Y: coordinate(value(row.Sample))})
	}
	return s
}

func positionSeries(spec PanelSpec, t *table.Table[sounding.PtuSample]) Series {
	s := Series{
		Panel:  spec.ID,
		Title:  spec.Title,
		XLabel: "Longitude",
		YLabel: spec.YLabel,
		Points: make([]Point, 0, t.Len()),
	}
	if t == nil {
		return s
	}
	for _, row := range t.Rows {
		s.Points = append(s.Points, Point{X: coordinate(row.Sample.Longitude), Y: coordinate(row.Sample.Latitude)})
	}
	return s
}

// RawSeries builds the series of the panels fed from the Raw log.
func RawSeries(t *table.Table[sounding.PtuSample]) []Series {
	var series []Series
	for _, spec := range Panels {
		if spec.Source != SourceRaw {
			continue
		}

		switch spec.ID {
		case Position:
			series = append(series, positionSeries(spec, t))
		case Pressure:
			series = append(series, timeSeries(spec, t, func(p sounding.PtuSample) float64 { return p.Pressure }))
		case Temperature:
			series = append(series, timeSeries(spec, t, func(p sounding.PtuSample) float64 { return p.Temperature }))
		case Humidity:
			series = append(series, timeSeries(spec, t, func(p sounding.PtuSample) float64 { return p.Humidity }))
		case WindSpeed:
			series = append(series, timeSeries(spec, t, func(p sounding.PtuSample) float64 { return p.WindSpeed }))
		case WindDirection:
			series = append(series, timeSeries(spec, t, func(p sounding.PtuSample) float64 { return p.WindDirection }))
		}
	}
	return series
}

// XDataSeries builds the series of the panels fed from the XData log.
func XDataSeries(t *table.Table[sounding.XDataSample]) []Series {
	var series []Series
	for _, spec := range Panels {
		switch spec.ID {
		case TWC:
			series = append(series, timeSeries(spec, t, func(x sounding.XDataSample) float64 { return x.TWCFrequency }))
		case SLWC:
			series = append(series, timeSeries(spec, t, func(x sounding.XDataSample) float64 { return x.SLWCFrequency }))
		}
	}
	return series
}
