package display

import (
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roman-kulish/sounding-telemetry/internal/live"
	"github.com/roman-kulish/sounding-telemetry/internal/metrics"
)

func temperatureSeries(values ...float64) live.Series {
	s := live.Series{Panel: live.Temperature, Title: "Temperature", XLabel: "Time", YLabel: "°C", Time: true}
	for i, v := range values {
		s.Points = append(s.Points, live.Point{X: float64(1704110400 + i), Y: v})
	}
	return s
}

func testPanel() *Panel {
	spec, _ := live.Spec(live.Temperature)
	return NewPanel(spec, color.Black, time.UTC)
}

func TestPanel_DisableAutoRange(t *testing.T) {
	p := testPanel()

	p.DisableAutoRange(live.AxisY)
	if _, _, fixed := p.Ranges(); fixed != 0 {
		t.Fatalf("empty panel froze axes %v", fixed)
	}

	p.SetSeries(temperatureSeries(-5, math.NaN(), 5))
	p.DisableAutoRange(live.AxisY)

	_, y, fixed := p.Ranges()
	if fixed != live.AxisY {
		t.Fatalf("fixed = %v, want Y", fixed)
	}
	if y.Min >= -5 || y.Max <= 5 {
		t.Errorf("y range %+v does not cover the data", y)
	}

	// later data does not move a frozen axis
	p.SetSeries(temperatureSeries(-50, 50))
	p.DisableAutoRange(live.AxisY)
	if _, y2, _ := p.Ranges(); y2 != y {
		t.Errorf("y range moved from %+v to %+v", y, y2)
	}

	pl, err := p.Plot()
	if err != nil {
		t.Fatalf("Plot() error = %v", err)
	}
	if pl.Y.Min != y.Min || pl.Y.Max != y.Max {
		t.Errorf("plot y = [%v, %v], want %+v", pl.Y.Min, pl.Y.Max, y)
	}
	if pl.X.Min > 1704110400 || pl.X.Max < 1704110401 {
		t.Errorf("plot x = [%v, %v] does not follow the data", pl.X.Min, pl.X.Max)
	}
}

func TestPanel_SetRange(t *testing.T) {
	p := testPanel()

	if err := p.SetRange(live.AxisX, Range{Min: 10, Max: 20}); err != nil {
		t.Fatalf("SetRange() error = %v", err)
	}
	if x, _, fixed := p.Ranges(); fixed != live.AxisX || x != (Range{Min: 10, Max: 20}) {
		t.Errorf("x = %+v, fixed = %v", x, fixed)
	}

	for _, r := range []Range{{Min: 2, Max: 1}, {Min: 1, Max: 1}, {Min: math.NaN(), Max: 1}} {
		if err := p.SetRange(live.AxisY, r); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("SetRange(%+v) error = %v, want ErrInvalidRange", r, err)
		}
	}
	if err := p.SetRange(live.AxisXY, Range{Min: 0, Max: 1}); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("SetRange(XY) error = %v", err)
	}
}

func TestPanel_Render(t *testing.T) {
	p := testPanel()
	p.SetSeries(temperatureSeries(1, 2, math.NaN(), 4, 5))

	img, err := p.Render(320, 200)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 200 {
		t.Errorf("image size = %v", b)
	}

	spec, _ := live.Spec(live.Position)
	track := NewPanel(spec, color.Black, nil)
	track.SetSeries(live.Series{Panel: live.Position, Points: []live.Point{{X: 24.5, Y: 60.25}, {X: math.NaN(), Y: math.NaN()}}})
	if _, err = track.Render(200, 200); err != nil {
		t.Fatalf("Render() position error = %v", err)
	}
}

func TestSegments(t *testing.T) {
	nan := math.NaN()
	got := segments([]live.Point{{X: 1, Y: 1}, {X: 2, Y: nan}, {X: 3, Y: 3}, {X: 4, Y: 4}, {X: 5, Y: nan}})
	if len(got) != 2 || len(got[0]) != 1 || len(got[1]) != 2 {
		t.Errorf("segments = %v", got)
	}
}

func TestPalette(t *testing.T) {
	colors := Palette(len(live.Panels))
	if len(colors) != len(live.Panels) {
		t.Fatalf("got %d colours", len(colors))
	}
	seen := make(map[color.RGBA]bool)
	for _, c := range colors {
		seen[color.RGBAModel.Convert(c).(color.RGBA)] = true
	}
	if len(seen) != len(colors) {
		t.Errorf("palette colours are not distinct: %v", colors)
	}
}

func newTestServer(t *testing.T) (*Server, *Dashboard, *Hub) {
	t.Helper()

	d, err := NewDashboard(time.UTC, WithPanelSize(200, 150), WithColumns(4))
	if err != nil {
		t.Fatalf("NewDashboard() error = %v", err)
	}

	reg := prometheus.NewRegistry()
	metrics.NewLive(reg)

	hub := NewHub()
	return NewServer(d, hub, WithGatherer(reg)), d, hub
}

func TestServer_Images(t *testing.T) {
	s, d, hub := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	p, _ := d.Panel(live.Temperature)
	p.SetSeries(temperatureSeries(1, 2, 3))
	hub.Refreshed(live.Snapshot{Time: time.Now(), State: "locked", RawPath: "/data/RawData_x.txt", RawRows: 3})

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("GET / = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decoding dashboard: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 300+statusHeight() {
		t.Errorf("dashboard size = %v", b)
	}

	for path, want := range map[string]int{
		"/panels/temperature.png": http.StatusOK,
		"/panels/twc.jpg":         http.StatusOK,
		"/panels/unknown.png":     http.StatusNotFound,
		"/panels/temperature.gif": http.StatusNotFound,
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("GET %s = %d, want %d", path, resp.StatusCode, want)
		}
	}
}

func TestServer_Range(t *testing.T) {
	s, d, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	put := func(query string) int {
		req, _ := http.NewRequest(http.MethodPut, srv.URL+"/panels/pressure/range?"+query, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := put("axis=y&min=100&max=1050"); code != http.StatusNoContent {
		t.Fatalf("PUT range = %d", code)
	}
	p, _ := d.Panel(live.Pressure)
	if _, y, fixed := p.Ranges(); fixed != live.AxisY || y != (Range{Min: 100, Max: 1050}) {
		t.Errorf("y = %+v, fixed = %v", y, fixed)
	}

	for _, q := range []string{"axis=z&min=0&max=1", "axis=x&min=a&max=1", "axis=x&min=5&max=1"} {
		if code := put(q); code != http.StatusBadRequest {
			t.Errorf("PUT range?%s = %d, want 400", q, code)
		}
	}
}

func TestServer_Health(t *testing.T) {
	s, _, hub := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	get := func() (int, health) {
		resp, err := http.Get(srv.URL + "/healthz")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var h health
		if err = json.NewDecoder(resp.Body).Decode(&h); err != nil {
			t.Fatal(err)
		}
		return resp.StatusCode, h
	}

	if code, h := get(); code != http.StatusServiceUnavailable || h.Status != "stale" {
		t.Errorf("before first refresh: %d %+v", code, h)
	}

	hub.Refreshed(live.Snapshot{Time: time.Now(), State: "idle"})
	if code, h := get(); code != http.StatusOK || h.State != "idle" {
		t.Errorf("after refresh: %d %+v", code, h)
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /metrics = %d", resp.StatusCode)
	}
}

func TestHub_Websocket(t *testing.T) {
	s, _, hub := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	hub.Refreshed(live.Snapshot{State: "idle"})

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	defer conn.Close()

	read := func() live.Snapshot {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var snap live.Snapshot
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("reading snapshot: %v", err)
		}
		return snap
	}

	if snap := read(); snap.State != "idle" {
		t.Errorf("first snapshot state = %q, want the latest one", snap.State)
	}

	// snapshots published before the client joined are not delivered
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				hub.Refreshed(live.Snapshot{State: "locked", RawRows: 7})
			}
		}
	}()

	for snap := read(); snap.State != "locked"; snap = read() {
		// the first snapshot may also be forwarded once the client joined
	}
}
