package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roman-kulish/sounding-telemetry/internal/storage"
)

const flightJSON = `{"radiosondeID":"T1234567","startTime":"2024-01-01T11:59:30Z","radioResetTime":"2024-01-01T12:00:00Z","launchTime":45,"comments":"nominal flight"}`

func TestRun(t *testing.T) {
	dir := t.TempDir()
	outbox := filepath.Join(t.TempDir(), "outbox")

	feed := strings.Join([]string{
		`{"type":"SystemEvent","event":"ReadyForRelease","flight":` + flightJSON + `}`,
		`{"type":"GPSResult","radioRxTime":10.2,"status":"autonomous","windNorth":4,"windEast":3,"height":1234.4,"longitude":24.5,"latitude":60.25}`,
		`{"type":"RawPtu","radioRxTime":10.4,"pressure":1013.25,"pressureOk":true,"temperature":-5,"temperatureOk":true,"humidity":80,"humidityOk":true,"ascentRate":5}`,
		`{"type":"AdditionalSensorData","radioRxTime":10.5,"instrumentType":60,"instrumentNumber":1,"xdata":"0103E807D0"}`,
		`{"type":"SystemEvent","event":"SoundingCompleted","flight":` + flightJSON + `}`,
	}, "\n")

	feedPath := filepath.Join(t.TempDir(), "feed.jsonl")
	if err := os.WriteFile(feedPath, []byte(feed), 0o644); err != nil {
		t.Fatal(err)
	}

	stop := true
	c := &Config{
		Feed:     FeedConfig{Source: feedPath, DecodeErrorsThreshold: 5},
		Recorder: RecorderConfig{OutputDir: dir, Destinations: []string{outbox}, StopOnFailure: &stop},
		Archive:  ArchiveConfig{Enabled: true, Path: filepath.Join(dir, "archive.sqlite")},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := Run(context.Background(), c, logger); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, name := range []string{"RawData_20240101115930_T1234567.txt", "XData_20240101115930_T1234567.txt"} {
		data, err := os.ReadFile(filepath.Join(outbox, name))
		if err != nil {
			t.Fatalf("reading dispatched %s: %v", name, err)
		}
		if !strings.Contains(string(data), "Comments: nominal flight") {
			t.Errorf("%s is not finalized:\n%s", name, data)
		}
	}

	store := storage.NewSqliteStore(c.Archive.Path)
	defer store.Close()

	flights, err := store.Flights(context.Background())
	if err != nil {
		t.Fatalf("Flights() error = %v", err)
	}
	if len(flights) != 1 || flights[0].RadiosondeID != "T1234567" {
		t.Fatalf("archived flights = %+v", flights)
	}
}
