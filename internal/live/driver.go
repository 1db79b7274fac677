// Package live drives the live view: on every tick it follows the newest
// Raw and XData logs, parses them and pushes the resulting series into the
// display panels.
package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/sounding-telemetry/internal/growfile"
	"github.com/roman-kulish/sounding-telemetry/internal/metrics"
	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
	"github.com/roman-kulish/sounding-telemetry/internal/table"
)

const (
	DefaultRawPattern   = "RawData*"
	DefaultXDataPattern = "XData*"

	// DefaultRawHeaderLines and DefaultXDataHeaderLines are the header sizes
	// written by the recorder.
	DefaultRawHeaderLines   = 1
	DefaultXDataHeaderLines = 2

	DefaultInterval = time.Second
)

// State is the auto-range state of the view.
type State int

const (
	// Idle panels rescale to fit their data.
	Idle State = iota

	// Locked panels keep their axis ranges; only the data is updated.
	Locked
)

func (s State) String() string {
	if s == Locked {
		return "locked"
	}
	return "idle"
}

// Panel receives the series of one plot.
type Panel interface {
	SetSeries(s Series)
	DisableAutoRange(axes Axis)
}

// Snapshot describes the view after a tick.
type Snapshot struct {
	Time      time.Time `json:"time"`
	State     string    `json:"state"`
	RawPath   string    `json:"rawPath,omitempty"`
	XDataPath string    `json:"xdataPath,omitempty"`
	RawRows   int       `json:"rawRows"`
	XDataRows int       `json:"xdataRows"`
	Series    []Series  `json:"series,omitempty"` // series pushed by the tick
}

// Observer is notified after every tick.
type Observer interface {
	Refreshed(s Snapshot)
}

// WithLogger sets the logger for the driver
func WithLogger(logger *slog.Logger) func(*Driver) {
	return func(d *Driver) {
		d.logger = logger.With(slog.String("component", "live"), slog.String("dir", d.dir))
	}
}

// WithPatterns sets the glob patterns of the Raw and XData logs.
func WithPatterns(raw, xdata string) func(*Driver) {
	return func(d *Driver) {
		if raw != "" {
			d.rawPattern = raw
		}
		if xdata != "" {
			d.xdataPattern = xdata
		}
	}
}

// WithHeaderLines sets the number of header lines expected in each log.
func WithHeaderLines(raw, xdata int) func(*Driver) {
	return func(d *Driver) {
		d.rawHeaderLines = raw
		d.xdataHeaderLines = xdata
	}
}

// WithInterval sets the tick period.
func WithInterval(interval time.Duration) func(*Driver) {
	return func(d *Driver) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// WithMaxAttempts bounds the parser's header-skip retry.
func WithMaxAttempts(n int) func(*Driver) {
	return func(d *Driver) {
		d.maxAttempts = n
	}
}

// WithLocation sets the time zone of the date/time columns.
func WithLocation(loc *time.Location) func(*Driver) {
	return func(d *Driver) {
		d.location = loc
	}
}

// WithMetrics sets the collectors updated after each tick.
func WithMetrics(m *metrics.Live) func(*Driver) {
	return func(d *Driver) {
		d.metrics = m
	}
}

// WithObserver sets the observer notified after each tick.
func WithObserver(o Observer) func(*Driver) {
	return func(d *Driver) {
		d.observer = o
	}
}

// Driver periodically refreshes the live view panels from the newest logs in
// a directory. All of its state is owned by the goroutine calling Tick or
// Run.
type Driver struct {
	dir          string
	rawPattern   string
	xdataPattern string

	rawHeaderLines   int
	xdataHeaderLines int
	maxAttempts      int
	location         *time.Location
	interval         time.Duration

	panels   map[PanelID]Panel
	observer Observer
	metrics  *metrics.Live
	logger   *slog.Logger

	state     State
	locked    map[PanelID]bool
	rawPath   string
	xdataPath string
	raw       *table.Table[sounding.PtuSample]
	xdata     *table.Table[sounding.XDataSample]
}

// NewDriver creates a Driver feeding panels from the logs in dir. Panels
// missing from the map are not fed.
func NewDriver(dir string, panels map[PanelID]Panel, options ...func(*Driver)) *Driver {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	d := Driver{
		dir:              dir,
		rawPattern:       DefaultRawPattern,
		xdataPattern:     DefaultXDataPattern,
		rawHeaderLines:   DefaultRawHeaderLines,
		xdataHeaderLines: DefaultXDataHeaderLines,
		maxAttempts:      table.DefaultMaxAttempts,
		location:         time.UTC,
		interval:         DefaultInterval,
		panels:           panels,
		logger:           logger,
		locked:           make(map[PanelID]bool),
	}

	for _, option := range options {
		option(&d)
	}

	return &d
}

// State returns the auto-range state.
func (d *Driver) State() State {
	return d.state
}

// Paths returns the logs selected by the last tick.
func (d *Driver) Paths() (raw, xdata string) {
	return d.rawPath, d.xdataPath
}

// Run ticks at the configured period until ctx is cancelled. The first tick
// runs immediately. A slow tick delays the next one; ticks never overlap.
func (d *Driver) Run(ctx context.Context) error {
	d.logger.Info("starting live refresh", slog.Duration("interval", d.interval))

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		_ = d.Tick(ctx) // errors are logged and retried on the next tick

		select {
		case <-ctx.Done():
			d.logger.Info("live refresh stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick selects and parses both logs and pushes their series into the panels.
// A log that cannot be selected or parsed leaves its panels with the data of
// the last successful tick. The returned error joins the failures of the
// tick; they are expected while a flight is starting and are already logged.
func (d *Driver) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()

	var (
		pushed []Series
		errs   []error
	)

	if series, err := d.refreshRaw(); err != nil {
		errs = append(errs, err)
	} else {
		pushed = append(pushed, series...)
	}

	if series, err := d.refreshXData(); err != nil {
		errs = append(errs, err)
	} else {
		pushed = append(pushed, series...)
	}

	d.push(pushed)

	err := errors.Join(errs...)
	d.observe(time.Since(start), err)

	if d.observer != nil {
		d.observer.Refreshed(Snapshot{
			Time:      start,
			State:     d.state.String(),
			RawPath:   d.rawPath,
			XDataPath: d.xdataPath,
			RawRows:   d.raw.Len(),
			XDataRows: d.xdata.Len(),
			Series:    pushed,
		})
	}

	return err
}

func (d *Driver) refreshRaw() ([]Series, error) {
	path, changed, err := d.selectLog(d.rawPattern, &d.rawPath, SourceRaw)
	if err != nil {
		return nil, err
	}

	t, err := table.Parse(path, table.RawSchema{Location: d.location}, d.rawHeaderLines, table.WithMaxAttempts(d.maxAttempts))
	if err != nil {
		d.logParseError(err, SourceRaw, path)
		return nil, err
	}

	d.raw = t
	d.observeTable(SourceRaw, t.Attempts, t.Len(), 0)

	if t.Len() == 0 && !changed {
		return nil, nil
	}
	return RawSeries(t), nil
}

func (d *Driver) refreshXData() ([]Series, error) {
	path, changed, err := d.selectLog(d.xdataPattern, &d.xdataPath, SourceXData)
	if err != nil {
		return nil, err
	}

	schema := table.XDataSchema{Epoch: d.xdataEpoch(path), Location: d.location}
	t, err := table.Parse(path, schema, d.xdataHeaderLines, table.WithMaxAttempts(d.maxAttempts))
	if err != nil {
		d.logParseError(err, SourceXData, path)
		return nil, err
	}

	// the whole file is parsed on every tick, only new frames are reported
	malformed := t.MalformedFrames
	if !changed && d.xdata != nil {
		malformed -= d.xdata.MalformedFrames
	}
	if malformed > 0 {
		d.logger.Warn(fmt.Sprintf("%d XData frames could not be decoded", malformed), slog.String("path", path))
	}

	d.xdata = t
	d.observeTable(SourceXData, t.Attempts, t.Len(), max(malformed, 0))

	if t.Len() == 0 && !changed {
		return nil, nil
	}
	return XDataSeries(t), nil
}

// selectLog finds the newest log matching pattern and records it in current.
// changed reports whether the driver switched to another file.
func (d *Driver) selectLog(pattern string, current *string, source Source) (path string, changed bool, err error) {
	f, err := growfile.Latest(d.dir, pattern)
	if err != nil {
		if errors.Is(err, sounding.ErrNoMatchingFile) {
			d.logger.Debug("no log to follow yet", slog.String("log", string(source)), slog.String("pattern", pattern))
		} else {
			d.logger.Warn(fmt.Sprintf("selecting %s log: %s", source, err.Error()))
		}
		return "", false, err
	}

	if f.Path != *current {
		d.logger.Info(fmt.Sprintf("following %s log", source),
			slog.String("path", f.Path),
			slog.String("size", humanize.Bytes(uint64(f.Size))),
			slog.String("modified", humanize.Time(f.ModTime)),
		)
		*current = f.Path
		changed = true
	}
	return f.Path, changed, nil
}

// xdataEpoch resolves the epoch of relative XData times from the start stamp
// in the XData log name, then in the Raw log name.
// The host counts them from the radio reset time, which the logs do not
// carry, so XData panels are offset by the reset delay after start.
func (d *Driver) xdataEpoch(path string) time.Time {
	epoch, err := table.EpochFromFileName(path, d.location)
	if err == nil {
		return epoch
	}
	if d.rawPath != "" {
		if epoch, rawErr := table.EpochFromFileName(d.rawPath, d.location); rawErr == nil {
			return epoch
		}
	}

	d.logger.Debug(fmt.Sprintf("relative XData times are unix times: %s", err.Error()), slog.String("path", path))
	return time.Unix(0, 0).In(d.location)
}

func (d *Driver) logParseError(err error, source Source, path string) {
	var unparsable *table.UnparsableError
	if errors.As(err, &unparsable) {
		d.logger.Warn(fmt.Sprintf("%s log is unparsable, keeping previous data: %s", source, unparsable.Err),
			slog.String("path", path), slog.Int("attempts", unparsable.Attempts))
		return
	}
	d.logger.Warn(fmt.Sprintf("reading %s log: %s", source, err.Error()), slog.String("path", path))
}

// push hands every series to its panel. The first series carrying data moves
// the view to Locked; a panel's auto-range is disabled on the first push that
// feeds it data once the view is locked, and never touched again.
func (d *Driver) push(series []Series) {
	for _, s := range series {
		if p, ok := d.panels[s.Panel]; ok {
			p.SetSeries(s)
		}
	}

	for _, s := range series {
		if len(s.Points) == 0 {
			continue
		}

		if d.state == Idle {
			d.state = Locked
			d.logger.Debug("locking panel ranges")
			if d.metrics != nil {
				d.metrics.Locked.Set(1)
			}
		}

		if d.locked[s.Panel] {
			continue
		}
		if p, ok := d.panels[s.Panel]; ok {
			p.DisableAutoRange(s.LockAxes())
			d.locked[s.Panel] = true
		}
	}
}

func (d *Driver) observe(elapsed time.Duration, err error) {
	if d.metrics == nil {
		return
	}

	d.metrics.TickDuration.Observe(elapsed.Seconds())

	outcome := "ok"
	switch {
	case errors.Is(err, sounding.ErrUnparsableFile):
		outcome = "unparsable"
	case errors.Is(err, sounding.ErrNoMatchingFile):
		outcome = "no_file"
	case err != nil:
		outcome = "error"
	}
	d.metrics.Ticks.WithLabelValues(outcome).Inc()
}

func (d *Driver) observeTable(source Source, attempts, rows, malformed int) {
	if d.metrics == nil {
		return
	}
	d.metrics.ParseAttempts.WithLabelValues(string(source)).Observe(float64(attempts))
	d.metrics.Rows.WithLabelValues(string(source)).Set(float64(rows))
	d.metrics.MalformedFrames.Add(float64(malformed))
}
