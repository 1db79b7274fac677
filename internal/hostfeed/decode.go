// Package hostfeed decodes the notifications a sounding host distributes
// during a flight.
//
// Notifications are JSON objects, one per line or websocket message, with a
// "type" discriminator:
//
//	{"type":"SystemEvent","event":"ReadyForRelease","flight":{...}}
//	{"type":"GPSResult","radioRxTime":12.4,"status":"autonomous",...}
//	{"type":"RawPtu","radioRxTime":12.6,"pressure":1013.25,"pressureOk":true,...}
//	{"type":"AdditionalSensorData","radioRxTime":12.5,"xdata":"01A1B2C3D4",...}
package hostfeed

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

const (
	TypeSystemEvent              = "SystemEvent"
	TypeGPSResult                = "GPSResult"
	TypeRawPtu                   = "RawPtu"
	TypeAdditionalSensorData     = "AdditionalSensorData"
	TypeSynchronizedSoundingData = "SynchronizedSoundingData"

	// aliases
	TypePositionSample = "PositionSample"
	TypePtuSample      = "PtuSample"
	TypeXDataSample    = "XDataSample"
)

var (
	// ErrUnknownEvent is returned for a notification type or system event
	// name the recorder does not handle.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrMissingRxTime is returned for a sample notification without a
	// reception time.
	ErrMissingRxTime = errors.New("missing radioRxTime")
)

type message struct {
	Type   string           `json:"type"`
	Event  string           `json:"event"`
	Flight *sounding.Flight `json:"flight"`

	RadioRxTime *float64 `json:"radioRxTime"`

	// GPSResult
	Status    string   `json:"status"`
	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
	Height    *float64 `json:"height"`
	WindNorth *float64 `json:"windNorth"`
	WindEast  *float64 `json:"windEast"`

	// RawPtu
	Pressure      *float64 `json:"pressure"`
	PressureOk    *bool    `json:"pressureOk"`
	Temperature   *float64 `json:"temperature"`
	TemperatureOk *bool    `json:"temperatureOk"`
	Humidity      *float64 `json:"humidity"`
	HumidityOk    *bool    `json:"humidityOk"`
	AscentRate    *float64 `json:"ascentRate"`

	// AdditionalSensorData, SynchronizedSoundingData
	Offset           *float64 `json:"offset"`
	InstrumentType   *float64 `json:"instrumentType"`
	InstrumentNumber *float64 `json:"instrumentNumber"`
	ServerTime       *float64 `json:"serverTime"`
	GPSOffset        *float64 `json:"gpsOffset"`
	XData            string   `json:"xdata"`
}

// Decode decodes one notification.
//
// PTU channels flagged as not ok, and any absent measurement, decode as
// sounding.MissingValue. An XData payload that cannot be decoded is not an
// error: its frequencies are left missing.
func Decode(data []byte) (sounding.Event, error) {
	var m message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding notification: %w", err)
	}

	switch m.Type {
	case TypeSystemEvent:
		return m.systemEvent()

	case TypeGPSResult, TypePositionSample:
		if m.RadioRxTime == nil {
			return nil, fmt.Errorf("%s: %w", m.Type, ErrMissingRxTime)
		}
		return sounding.PositionEvent{Sample: sounding.PositionSample{
			Time:      *m.RadioRxTime,
			Longitude: sounding.FromPointer(m.Longitude),
			Latitude:  sounding.FromPointer(m.Latitude),
			Height:    sounding.FromPointer(m.Height),
			WindNorth: sounding.FromPointer(m.WindNorth),
			WindEast:  sounding.FromPointer(m.WindEast),
			Status:    sounding.ParseWindStatus(m.Status),
		}}, nil

	case TypeRawPtu, TypePtuSample:
		if m.RadioRxTime == nil {
			return nil, fmt.Errorf("%s: %w", m.Type, ErrMissingRxTime)
		}
		p := sounding.NewPtuSample(*m.RadioRxTime)
		p.Pressure = checked(m.Pressure, m.PressureOk)
		p.Temperature = checked(m.Temperature, m.TemperatureOk)
		p.Humidity = checked(m.Humidity, m.HumidityOk)
		p.AscentRate = sounding.FromPointer(m.AscentRate)
		return sounding.PtuEvent{Sample: p}, nil

	case TypeAdditionalSensorData, TypeSynchronizedSoundingData, TypeXDataSample:
		if m.RadioRxTime == nil {
			return nil, fmt.Errorf("%s: %w", m.Type, ErrMissingRxTime)
		}
		source := sounding.SourceAdditionalSensorData
		if m.Type == TypeSynchronizedSoundingData {
			source = sounding.SourceSynchronizedSoundingData
		}

		x := sounding.XDataSample{
			Time:             *m.RadioRxTime,
			Offset:           sounding.FromPointer(m.Offset),
			InstrumentType:   sounding.FromPointer(m.InstrumentType),
			InstrumentNumber: sounding.FromPointer(m.InstrumentNumber),
			ServerTime:       sounding.FromPointer(m.ServerTime),
			GPSOffset:        sounding.FromPointer(m.GPSOffset),
			Payload:          m.XData,
		}
		ev := sounding.XDataEvent{Source: source, Sample: x}
		if sounding.IsPlaceholder(x.Payload) {
			ev.Sample.Payload = ""
			ev.Sample.TWCFrequency, ev.Sample.SLWCFrequency = sounding.MissingValue, sounding.MissingValue
			return ev, nil
		}
		ev.FrameErr = ev.Sample.Decode()
		return ev, nil

	default:
		return nil, fmt.Errorf("%w: type %q", ErrUnknownEvent, m.Type)
	}
}

func (m *message) systemEvent() (sounding.Event, error) {
	kind := sounding.SystemEventKind(m.Event)
	switch kind {
	case sounding.ReadyForRelease, sounding.SoundingCompleted:
	default:
		return nil, fmt.Errorf("%w: system event %q", ErrUnknownEvent, m.Event)
	}

	ev := sounding.SystemEvent{Kind: kind}
	if m.Flight != nil {
		ev.Flight = *m.Flight
	}
	return ev, nil
}

// checked returns the measurement unless the host flagged it as not ok.
func checked(v *float64, ok *bool) float64 {
	if ok != nil && !*ok {
		return sounding.MissingValue
	}
	return sounding.FromPointer(v)
}
