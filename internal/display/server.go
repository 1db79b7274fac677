package display

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roman-kulish/sounding-telemetry/internal/live"
)

const (
	DefaultStaleAfter = 10 * time.Second

	shutdownTimeout = 5 * time.Second
)

// WithServerLogger sets the logger for the server
func WithServerLogger(logger *slog.Logger) func(*Server) {
	return func(s *Server) {
		s.logger = logger.With(slog.String("component", "http"))
	}
}

// WithGatherer exposes the metrics of g on /metrics.
func WithGatherer(g prometheus.Gatherer) func(*Server) {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithImageFormat sets the encoding of the dashboard image.
func WithImageFormat(f ImageFormat) func(*Server) {
	return func(s *Server) {
		s.format = f
	}
}

// WithStaleAfter sets how old the last refresh may be before /healthz
// reports the view as stale.
func WithStaleAfter(d time.Duration) func(*Server) {
	return func(s *Server) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// Server serves the live view over HTTP.
type Server struct {
	dashboard  *Dashboard
	hub        *Hub
	gatherer   prometheus.Gatherer
	format     ImageFormat
	staleAfter time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewServer creates a Server rendering dashboard and streaming the snapshots
// collected by hub.
func NewServer(dashboard *Dashboard, hub *Hub, options ...func(*Server)) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	s := Server{
		dashboard:  dashboard,
		hub:        hub,
		gatherer:   prometheus.DefaultGatherer,
		format:     ImagePNG,
		staleAfter: DefaultStaleAfter,
		logger:     logger,
		now:        time.Now,
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Handler returns the HTTP routes of the live view.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /panels/{file}", s.handlePanel)
	mux.HandleFunc("PUT /panels/{name}/range", s.handleRange)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /ws", s.hub)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("serving live view", slog.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving %s: %w", addr, err)
	}
	return nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	img, err := s.dashboard.Render(s.hub.Last())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.writeImage(w, img, s.format)
}

func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")

	format := ImagePNG
	name, ok := strings.CutSuffix(file, ".png")
	if !ok {
		if name, ok = strings.CutSuffix(file, ".jpg"); ok {
			format = ImageJPEG
		}
	}
	if !ok {
		http.NotFound(w, r)
		return
	}

	p, ok := s.dashboard.Panel(live.PanelID(name))
	if !ok {
		http.NotFound(w, r)
		return
	}

	img, err := p.Render(s.dashboard.PanelSize())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.writeImage(w, img, format)
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	p, ok := s.dashboard.Panel(live.PanelID(r.PathValue("name")))
	if !ok {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()

	var axis live.Axis
	switch q.Get("axis") {
	case "x":
		axis = live.AxisX
	case "y":
		axis = live.AxisY
	default:
		s.fail(w, http.StatusBadRequest, fmt.Errorf("axis must be x or y, got %q", q.Get("axis")))
		return
	}

	var rng Range
	var err error
	if rng.Min, err = strconv.ParseFloat(q.Get("min"), 64); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("parsing min: %w", err))
		return
	}
	if rng.Max, err = strconv.ParseFloat(q.Get("max"), 64); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("parsing max: %w", err))
		return
	}

	if err = p.SetRange(axis, rng); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	s.logger.Debug("panel range set", slog.String("panel", string(p.ID())), slog.String("axis", q.Get("axis")),
		slog.Float64("min", rng.Min), slog.Float64("max", rng.Max))
	w.WriteHeader(http.StatusNoContent)
}

type health struct {
	Status      string    `json:"status"`
	State       string    `json:"state,omitempty"`
	LastRefresh time.Time `json:"lastRefresh,omitempty"`
	RawPath     string    `json:"rawPath,omitempty"`
	XDataPath   string    `json:"xdataPath,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	last := s.hub.Last()

	h := health{
		Status:      "ok",
		State:       last.State,
		LastRefresh: last.Time,
		RawPath:     last.RawPath,
		XDataPath:   last.XDataPath,
	}

	code := http.StatusOK
	if last.Time.IsZero() || s.now().Sub(last.Time) > s.staleAfter {
		h.Status = "stale"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(h)
}

func (s *Server) writeImage(w http.ResponseWriter, img image.Image, format ImageFormat) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format); err != nil {
		s.fail(w, http.StatusInternalServerError, fmt.Errorf("encoding image: %w", err))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func (s *Server) fail(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.logger.Error(err.Error())
	}
	http.Error(w, err.Error(), code)
}
