package hostfeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, ev sounding.Event)
	}{
		{
			name:  "ready for release",
			input: `{"type":"SystemEvent","event":"ReadyForRelease","flight":{"radiosondeID":"T1","startTime":"2024-01-01T11:30:00Z","radioResetTime":"2024-01-01T11:29:00Z","launchTime":90}}`,
			check: func(t *testing.T, ev sounding.Event) {
				se, ok := ev.(sounding.SystemEvent)
				if !ok {
					t.Fatalf("got %T", ev)
				}
				if se.Kind != sounding.ReadyForRelease || se.Flight.RadiosondeID != "T1" || se.Flight.LaunchTime != 90 {
					t.Errorf("unexpected event: %+v", se)
				}
			},
		},
		{
			name:  "sounding completed without flight",
			input: `{"type":"SystemEvent","event":"SoundingCompleted"}`,
			check: func(t *testing.T, ev sounding.Event) {
				if se := ev.(sounding.SystemEvent); se.Kind != sounding.SoundingCompleted {
					t.Errorf("kind = %q", se.Kind)
				}
			},
		},
		{
			name:  "gps result",
			input: `{"type":"GPSResult","radioRxTime":12.4,"status":"differential","windNorth":4,"windEast":3,"height":1234.4,"longitude":24.5,"latitude":60.25}`,
			check: func(t *testing.T, ev sounding.Event) {
				p := ev.(sounding.PositionEvent).Sample
				if p.Time != 12.4 || p.Status != sounding.StatusDifferential || p.WindNorth != 4 || p.Latitude != 60.25 {
					t.Errorf("unexpected sample: %+v", p)
				}
			},
		},
		{
			name:  "position alias with missing wind",
			input: `{"type":"PositionSample","radioRxTime":1,"status":"autonomous"}`,
			check: func(t *testing.T, ev sounding.Event) {
				p := ev.(sounding.PositionEvent).Sample
				if !sounding.IsMissing(p.WindNorth) || !sounding.IsMissing(p.Height) {
					t.Errorf("absent fields not missing: %+v", p)
				}
			},
		},
		{
			name:  "raw ptu with failed channel",
			input: `{"type":"RawPtu","radioRxTime":12.6,"pressure":1013.25,"pressureOk":true,"temperature":-5,"temperatureOk":false,"humidity":80,"ascentRate":5}`,
			check: func(t *testing.T, ev sounding.Event) {
				p := ev.(sounding.PtuEvent).Sample
				if p.Pressure != 1013.25 || p.Humidity != 80 || p.AscentRate != 5 {
					t.Errorf("unexpected sample: %+v", p)
				}
				if !sounding.IsMissing(p.Temperature) {
					t.Errorf("temperature flagged not ok = %v", p.Temperature)
				}
				if !sounding.IsMissing(p.WindSpeed) {
					t.Errorf("wind speed = %v", p.WindSpeed)
				}
			},
		},
		{
			name:  "additional sensor data",
			input: `{"type":"AdditionalSensorData","radioRxTime":12.5,"instrumentType":60,"instrumentNumber":1,"xdata":"0103E807D0"}`,
			check: func(t *testing.T, ev sounding.Event) {
				x := ev.(sounding.XDataEvent)
				if x.Source != sounding.SourceAdditionalSensorData {
					t.Errorf("source = %q", x.Source)
				}
				if x.Sample.TWCFrequency != 1 || x.Sample.SLWCFrequency != 2 || x.FrameErr != nil {
					t.Errorf("frequencies = %v, %v (%v)", x.Sample.TWCFrequency, x.Sample.SLWCFrequency, x.FrameErr)
				}
				if !sounding.IsMissing(x.Sample.Offset) {
					t.Errorf("offset = %v", x.Sample.Offset)
				}
			},
		},
		{
			name:  "synchronized sounding data with short payload",
			input: `{"type":"SynchronizedSoundingData","radioRxTime":3,"xdata":"01"}`,
			check: func(t *testing.T, ev sounding.Event) {
				x := ev.(sounding.XDataEvent)
				if x.Source != sounding.SourceSynchronizedSoundingData {
					t.Errorf("source = %q", x.Source)
				}
				if !sounding.IsMissing(x.Sample.TWCFrequency) {
					t.Errorf("twc = %v", x.Sample.TWCFrequency)
				}
				if !errors.Is(x.FrameErr, sounding.ErrMalformedFrame) {
					t.Errorf("frame error = %v, want ErrMalformedFrame", x.FrameErr)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.input))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			tt.check(t, ev)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{name: "unknown type", input: `{"type":"Oif411Parameters"}`, want: ErrUnknownEvent},
		{name: "unknown system event", input: `{"type":"SystemEvent","event":"SoundingCreated"}`, want: ErrUnknownEvent},
		{name: "missing rx time", input: `{"type":"RawPtu","pressure":1000}`, want: ErrMissingRxTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.input)); !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Decode([]byte("not json")); err == nil {
		t.Error("invalid JSON accepted")
	}
}

func collect(t *testing.T, r *Reader) ([]sounding.Event, error) {
	t.Helper()
	events := make(chan sounding.Event)
	errc := make(chan error, 1)
	go func() { errc <- r.Run(context.Background(), events) }()

	var got []sounding.Event
	for ev := range events {
		got = append(got, ev)
	}
	return got, <-errc
}

func TestReader_Run(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"SystemEvent","event":"ReadyForRelease"}`,
		``,
		`garbage`,
		`{"type":"RawPtu","radioRxTime":1}`,
		`{"type":"GPSResult","radioRxTime":1}`,
	}, "\n")

	got, err := collect(t, NewReader("test", strings.NewReader(input)))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if _, ok := got[2].(sounding.PositionEvent); !ok {
		t.Errorf("last event is %T", got[2])
	}
}

func TestReader_TooManyDecodeErrors(t *testing.T) {
	input := strings.Repeat("garbage\n", 3) + `{"type":"RawPtu","radioRxTime":1}` + "\n" + strings.Repeat("garbage\n", 3)

	got, err := collect(t, NewReader("test", strings.NewReader(input), WithDecodeErrorsThreshold(3)))
	if !errors.Is(err, ErrTooManyDecodeErrors) {
		t.Fatalf("Run() error = %v, want ErrTooManyDecodeErrors", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d events before abort, want 0", len(got))
	}

	input = "garbage\ngarbage\n" + `{"type":"RawPtu","radioRxTime":1}` + "\ngarbage\ngarbage\n"
	got, err = collect(t, NewReader("test", strings.NewReader(input), WithDecodeErrorsThreshold(3)))
	if err != nil {
		t.Fatalf("errors below threshold aborted the feed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d events, want 1", len(got))
	}
}

func TestReader_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan sounding.Event) // never read

	input := `{"type":"RawPtu","radioRxTime":1}` + "\n"
	errc := make(chan error, 1)
	go func() { errc <- NewReader("test", strings.NewReader(input)).Run(ctx, events) }()

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestDialWebsocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"SystemEvent","event":"ReadyForRelease"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"RawPtu","radioRxTime":2}`))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer srv.Close()

	src, err := Open(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	got, err := collect(t, NewReader("ws", src))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
}
