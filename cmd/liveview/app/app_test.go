package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roman-kulish/sounding-telemetry/internal/live"
	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

const rawLog = "Date Time P T RH DD FF V U Height Lon Lat VV\r\n" +
	"2024-01-01 12:00:10 1013.25 -5.00 80.00 217 5.00 4.00 3.00 1234 24.500000 60.250000 5.00\r\n" +
	"2024-01-01 12:00:11 1013.10 -5.10 79.00 217 5.00 4.00 3.00 1239 24.500010 60.250010 5.00\r\n"

func TestCreate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "RawData_20240101115930_T1.txt"), []byte(rawLog), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig(writeConfig(t, "live:\n  directory: "+dir+"\n"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	server, hub, driver, err := create(c, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("create() error = %v", err)
	}

	// no XData log yet
	if err = driver.Tick(context.Background()); !errors.Is(err, sounding.ErrNoMatchingFile) {
		t.Fatalf("Tick() error = %v, want ErrNoMatchingFile", err)
	}
	if driver.State() != live.Locked {
		t.Errorf("state = %s, want locked", driver.State())
	}
	if last := hub.Last(); last.RawRows != 2 || time.Since(last.Time) > time.Minute {
		t.Errorf("last snapshot = %+v", last)
	}

	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	for _, path := range []string{"/", "/panels/temperature.png", "/healthz", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d", path, resp.StatusCode)
		}
	}
}

func TestRun_MissingDirectory(t *testing.T) {
	c := &Config{Live: LiveConfig{Directory: filepath.Join(t.TempDir(), "missing")}}
	if err := Run(context.Background(), c, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Error("Run() accepted a missing directory")
	}
}
