package sounding

import (
	"fmt"
	"strings"
	"time"
)

const (
	StatusUnavailable WindStatus = iota
	StatusAutonomous
	StatusDifferential
	StatusOther
)

// WindStatus is the GPS wind solution quality reported with a position.
type WindStatus int

// HasWind reports whether wind-derived fields can be trusted.
func (s WindStatus) HasWind() bool {
	return s == StatusAutonomous || s == StatusDifferential
}

func (s WindStatus) String() string {
	switch s {
	case StatusUnavailable:
		return "unavailable"
	case StatusAutonomous:
		return "autonomous"
	case StatusDifferential:
		return "differential"
	default:
		return "other"
	}
}

// ParseWindStatus maps a host status name to a WindStatus. Unknown names map
// to StatusOther.
func ParseWindStatus(s string) WindStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unavailable", "none", "nosolution":
		return StatusUnavailable
	case "autonomous":
		return StatusAutonomous
	case "differential":
		return StatusDifferential
	default:
		return StatusOther
	}
}

func (s WindStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *WindStatus) UnmarshalText(text []byte) error {
	*s = ParseWindStatus(string(text))
	return nil
}

const (
	SourceAdditionalSensorData     XDataSource = "AdditionalSensorData"
	SourceSynchronizedSoundingData XDataSource = "SynchronizedSoundingData"
)

// XDataSource is the host notification kind an XData sample came from.
type XDataSource string

// ParseXDataSource validates a configured notification kind.
func ParseXDataSource(s string) (XDataSource, error) {
	switch XDataSource(s) {
	case "":
		return SourceAdditionalSensorData, nil
	case SourceAdditionalSensorData, SourceSynchronizedSoundingData:
		return XDataSource(s), nil
	default:
		return "", fmt.Errorf("unknown xdata source %q", s)
	}
}

// PtuSample is one meteorological record. Time is in seconds on the sample's
// clock basis: relative to the radio reset for host notifications, unix time
// for rows read back from a log. Every measurement may be MissingValue.
type PtuSample struct {
	Time          float64 `json:"time"`          // Reception time in seconds
	Pressure      float64 `json:"pressure"`      // Pressure in hPa
	Temperature   float64 `json:"temperature"`   // Temperature in °C
	Humidity      float64 `json:"humidity"`      // Relative humidity in %
	WindDirection float64 `json:"windDirection"` // Wind direction in degrees
	WindSpeed     float64 `json:"windSpeed"`     // Wind speed in m/s
	WindNorth     float64 `json:"windNorth"`     // North wind component in m/s
	WindEast      float64 `json:"windEast"`      // East wind component in m/s
	AscentRate    float64 `json:"ascentRate"`    // Ascent rate in m/s
	Height        float64 `json:"height"`        // Geometric height above sea level in m
	Longitude     float64 `json:"longitude"`     // WGS84 longitude in degrees
	Latitude      float64 `json:"latitude"`      // WGS84 latitude in degrees
}

// NewPtuSample returns a sample at time t with every measurement missing.
func NewPtuSample(t float64) PtuSample {
	return PtuSample{
		Time:          t,
		Pressure:      MissingValue,
		Temperature:   MissingValue,
		Humidity:      MissingValue,
		WindDirection: MissingValue,
		WindSpeed:     MissingValue,
		WindNorth:     MissingValue,
		WindEast:      MissingValue,
		AscentRate:    MissingValue,
		Height:        MissingValue,
		Longitude:     MissingValue,
		Latitude:      MissingValue,
	}
}

// PositionSample is one GPS solution.
type PositionSample struct {
	Time      float64    `json:"time"`
	Longitude float64    `json:"longitude"`
	Latitude  float64    `json:"latitude"`
	Height    float64    `json:"height"`
	WindNorth float64    `json:"windNorth"`
	WindEast  float64    `json:"windEast"`
	Status    WindStatus `json:"status"`
}

// XDataSample is one auxiliary sensor frame.
type XDataSample struct {
	Time             float64 `json:"time"`
	Offset           float64 `json:"offset"`
	InstrumentType   float64 `json:"instrumentType"`
	InstrumentNumber float64 `json:"instrumentNumber"`
	ServerTime       float64 `json:"serverTime"`
	GPSOffset        float64 `json:"gpsOffset"`
	Payload          string  `json:"payload"`
	TWCFrequency     float64 `json:"twcFrequency"`  // decoded from Payload[2:6)
	SLWCFrequency    float64 `json:"slwcFrequency"` // decoded from Payload[6:10)
}

// Decode fills the frequency fields from the payload. Channels that fail to
// decode are set to MissingValue and the error is returned.
func (x *XDataSample) Decode() error {
	var err error
	x.TWCFrequency, x.SLWCFrequency, err = DecodeFrequencies(x.Payload)
	return err
}

// Flight is the metadata the host reports for one sounding.
type Flight struct {
	RadiosondeID   string    `json:"radiosondeID"`
	StartTime      time.Time `json:"startTime"`      // Sounding start time
	RadioResetTime time.Time `json:"radioResetTime"` // Epoch of reception times
	LaunchTime     float64   `json:"launchTime"`     // Seconds between start and balloon release
	Operator       string    `json:"operator,omitempty"`
	Comments       string    `json:"comments,omitempty"`
	Destinations   []string  `json:"destinations,omitempty"`
}

// ReleaseTime is the balloon release time.
func (f Flight) ReleaseTime() time.Time {
	return f.StartTime.Add(time.Duration(f.LaunchTime * float64(time.Second)).Round(time.Second))
}

// Stamp is the start time stamp used in file names.
func (f Flight) Stamp() string {
	return f.StartTime.Format(StampLayout)
}

// StampLayout formats the start time embedded in log file names.
const StampLayout = "20060102150405"
