package flight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/roman-kulish/sounding-telemetry/internal/merge"
	"github.com/roman-kulish/sounding-telemetry/internal/metrics"
	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
	"github.com/roman-kulish/sounding-telemetry/internal/storage"
)

const maxBatchSize = 100

var (
	// ErrRecordingFailed wraps any I/O failure writing a flight's logs.
	ErrRecordingFailed = errors.New("recording failed")

	// ErrNoActiveFlight is returned for a sample or a completion that
	// arrives while no flight is being recorded.
	ErrNoActiveFlight = errors.New("no active flight")
)

// Archive is the part of the flight archive the recorder writes to.
type Archive interface {
	CreateFlight(ctx context.Context, f sounding.Flight, rawPath, xdataPath string) (int64, error)
	FinishFlight(ctx context.Context, flightID int64, comments string, completedAt time.Time) error
	StoreRecords(ctx context.Context, records []storage.Record) error
	StoreXData(ctx context.Context, records []storage.XDataRecord) error
}

// WithLogger sets the logger for the recorder
func WithLogger(logger *slog.Logger) func(*Recorder) {
	return func(r *Recorder) {
		r.logger = logger.With(slog.String("component", "recorder"))
	}
}

// WithArchive archives every flight, its synchronized records and its xdata.
func WithArchive(a Archive) func(*Recorder) {
	return func(r *Recorder) {
		r.archive = a
	}
}

// WithMetrics sets the collectors updated by the recorder.
func WithMetrics(m *metrics.Recorder) func(*Recorder) {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// WithMaxBatchSize sets the maximum number of records to store within a
// single database transaction.
func WithMaxBatchSize(size int) func(*Recorder) {
	return func(r *Recorder) {
		if size > 0 {
			r.maxBatchSize = size
		}
	}
}

// WithXDataSource selects the notification kind recorded into the XData log.
// Samples delivered as the other kind are ignored.
func WithXDataSource(source sounding.XDataSource) func(*Recorder) {
	return func(r *Recorder) {
		r.xdataSource = source
	}
}

// WithDestinations adds directories every finished log is copied into, on
// top of the destinations the host reports for the flight.
func WithDestinations(dirs ...string) func(*Recorder) {
	return func(r *Recorder) {
		r.destinations = append(r.destinations, dirs...)
	}
}

// WithStopOnFailure makes Run return when a flight's logs cannot be written.
func WithStopOnFailure(stop bool) func(*Recorder) {
	return func(r *Recorder) {
		r.stopOnFailure = stop
	}
}

// Recorder writes the Raw and XData logs of the flight being recorded.
// Handle and Run must not be called concurrently.
type Recorder struct {
	outputDir    string
	destinations []string
	xdataSource  sounding.XDataSource

	archive Archive
	metrics *metrics.Recorder
	logger  *slog.Logger

	maxBatchSize  int
	stopOnFailure bool

	session      *Session
	records      []storage.Record
	xdataRecords []storage.XDataRecord

	now func() time.Time
}

// NewRecorder creates a Recorder writing logs into outputDir with a discard
// logger.
func NewRecorder(outputDir string, options ...func(*Recorder)) *Recorder {
	r := Recorder{
		outputDir:    outputDir,
		xdataSource:  sounding.SourceAdditionalSensorData,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxBatchSize: maxBatchSize,
		now:          time.Now,
	}

	for _, option := range options {
		option(&r)
	}

	if r.metrics == nil {
		r.metrics = metrics.NewRecorder(nil)
	}

	return &r
}

// Session returns the flight being recorded, nil between flights.
func (r *Recorder) Session() *Session {
	return r.session
}

// Run handles events until the channel is closed or the context is
// cancelled, then closes the open flight without finalizing it.
//
// Events without an active flight are logged and ignored. A recording
// failure is logged; it stops Run only when WithStopOnFailure is set.
func (r *Recorder) Run(ctx context.Context, events <-chan sounding.Event) (err error) {
	defer func() {
		err = errors.Join(err, r.Close(context.WithoutCancel(ctx)))
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}

			err := r.Handle(ctx, ev)
			switch {
			case err == nil:
			case errors.Is(err, ErrNoActiveFlight):
				r.logger.Warn(err.Error())
			case errors.Is(err, ErrRecordingFailed):
				r.logger.Error(err.Error())
				if r.stopOnFailure {
					return err
				}
			default:
				r.logger.Error(err.Error())
			}
		}
	}
}

// Handle dispatches one event.
func (r *Recorder) Handle(ctx context.Context, ev sounding.Event) error {
	switch e := ev.(type) {
	case sounding.SystemEvent:
		r.metrics.Events.WithLabelValues(string(e.Kind)).Inc()
		switch e.Kind {
		case sounding.ReadyForRelease:
			return r.start(ctx, e.Flight)
		case sounding.SoundingCompleted:
			return r.complete(ctx, e.Flight)
		default:
			return fmt.Errorf("unknown system event %q", e.Kind)
		}

	case sounding.PtuEvent:
		r.metrics.Events.WithLabelValues("RawPtu").Inc()
		s, err := r.active("RawPtu")
		if s == nil {
			return err
		}
		if !s.UpdatePTU(e.Sample) {
			r.metrics.StaleSamples.WithLabelValues("ptu").Inc()
			return nil
		}
		return r.writeSynchronized(ctx, s)

	case sounding.PositionEvent:
		r.metrics.Events.WithLabelValues("GPSResult").Inc()
		s, err := r.active("GPSResult")
		if s == nil {
			return err
		}
		if !s.UpdatePosition(e.Sample) {
			r.metrics.StaleSamples.WithLabelValues("position").Inc()
			return nil
		}
		return r.writeSynchronized(ctx, s)

	case sounding.XDataEvent:
		r.metrics.Events.WithLabelValues(string(e.Source)).Inc()
		if e.Source != r.xdataSource {
			return nil
		}
		s, err := r.active(string(e.Source))
		if s == nil {
			return err
		}
		if e.FrameErr != nil {
			r.metrics.MalformedFrames.Inc()
			r.logger.Debug(e.FrameErr.Error(), slog.Float64("radioRxTime", e.Sample.Time))
		}
		return r.writeXData(ctx, s, e.Sample)

	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
}

// active returns the session samples are recorded into. A nil session with
// a nil error means the sample is dropped silently.
func (r *Recorder) active(kind string) (*Session, error) {
	if r.session == nil {
		return nil, fmt.Errorf("%s: %w", kind, ErrNoActiveFlight)
	}
	if r.session.Failed() != nil {
		return nil, nil
	}
	return r.session, nil
}

func (r *Recorder) start(ctx context.Context, f sounding.Flight) error {
	if r.session != nil {
		r.logger.Warn("flight was not completed, closing it", slog.String("flight", r.session.Flight.RadiosondeID))
		if err := r.Close(ctx); err != nil {
			r.logger.Error(err.Error())
		}
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return fmt.Errorf("%w: creating output directory: %w", ErrRecordingFailed, err)
	}

	s, err := NewSession(r.outputDir, f)
	if err != nil {
		r.metrics.Failures.Inc()
		return fmt.Errorf("%w: %w", ErrRecordingFailed, err)
	}
	r.session = s
	r.metrics.ActiveFlight.Set(1)

	r.logger.Info("recording flight",
		slog.String("flight", f.RadiosondeID),
		slog.String("raw", s.RawPath),
		slog.String("xdata", s.XDataPath),
		slog.Time("release", f.ReleaseTime()),
	)

	if r.archive != nil {
		if s.FlightID, err = r.archive.CreateFlight(ctx, f, s.RawPath, s.XDataPath); err != nil {
			r.logger.Error(fmt.Sprintf("archiving flight: %s", err.Error()))
		}
	}
	return nil
}

func (r *Recorder) complete(ctx context.Context, f sounding.Flight) error {
	s := r.session
	if s == nil {
		return fmt.Errorf("SoundingCompleted: %w", ErrNoActiveFlight)
	}

	comments := f.Comments
	if comments == "" {
		comments = s.Flight.Comments
	}

	failed := s.Failed()
	var errs []error
	if err := s.Finish(comments); err != nil {
		errs = append(errs, err)
	}

	if failed == nil && len(errs) == 0 {
		destinations := append(slices.Clone(r.destinations), f.Destinations...)
		destinations = append(destinations, s.Flight.Destinations...)
		slices.Sort(destinations)
		destinations = slices.Compact(destinations)

		if err := CopyToDestinations([]string{s.RawPath, s.XDataPath}, destinations); err != nil {
			errs = append(errs, fmt.Errorf("%w: sending to destinations: %w", ErrRecordingFailed, err))
		} else if len(destinations) > 0 {
			r.logger.Info("logs sent to destinations", slog.Any("destinations", destinations))
		}
	}

	r.flush(ctx)
	if r.archive != nil && s.FlightID > 0 {
		if err := r.archive.FinishFlight(ctx, s.FlightID, comments, r.now()); err != nil {
			r.logger.Error(fmt.Sprintf("archiving flight completion: %s", err.Error()))
		}
	}

	r.session = nil
	r.metrics.ActiveFlight.Set(0)
	r.logger.Info("flight completed", slog.String("flight", s.Flight.RadiosondeID))

	if err := errors.Join(errs...); err != nil {
		r.metrics.Failures.Inc()
		return err
	}
	return nil
}

func (r *Recorder) writeSynchronized(ctx context.Context, s *Session) error {
	line, record, ready, ok := s.Synchronized()
	if !ready {
		return nil
	}
	if !ok {
		r.metrics.JoinMismatches.Inc()
		r.logger.Debug("ptu and position are not aligned")
		return nil
	}

	if err := s.WriteRaw(line); err != nil {
		r.metrics.Failures.Inc()
		return err
	}
	r.metrics.LinesWritten.WithLabelValues("raw").Inc()

	if r.archive != nil && s.FlightID > 0 {
		r.records = append(r.records, storage.Record{
			FlightID:  s.FlightID,
			Timestamp: merge.Timestamp(s.Flight.RadioResetTime, record.Time).Unix(),
			Sample:    record,
		})
		if len(r.records) >= r.maxBatchSize {
			r.flush(ctx)
		}
	}
	return nil
}

func (r *Recorder) writeXData(ctx context.Context, s *Session, x sounding.XDataSample) error {
	if err := s.WriteXData(merge.FormatXData(x)); err != nil {
		r.metrics.Failures.Inc()
		return err
	}
	r.metrics.LinesWritten.WithLabelValues("xdata").Inc()

	if r.archive != nil && s.FlightID > 0 && !sounding.IsMissing(x.Time) {
		r.xdataRecords = append(r.xdataRecords, storage.XDataRecord{
			FlightID:  s.FlightID,
			Timestamp: merge.Timestamp(s.Flight.RadioResetTime, x.Time).Unix(),
			Sample:    x,
		})
		if len(r.xdataRecords) >= r.maxBatchSize {
			r.flush(ctx)
		}
	}
	return nil
}

// flush stores pending archive records. Archive failures are logged: the
// logs on disk remain the reference.
func (r *Recorder) flush(ctx context.Context) {
	if r.archive == nil {
		return
	}

	for chunk := range slices.Chunk(r.records, r.maxBatchSize) {
		if err := r.archive.StoreRecords(ctx, chunk); err != nil {
			r.logger.Error(fmt.Sprintf("archiving records: %s", err.Error()))
		}
	}
	for chunk := range slices.Chunk(r.xdataRecords, r.maxBatchSize) {
		if err := r.archive.StoreXData(ctx, chunk); err != nil {
			r.logger.Error(fmt.Sprintf("archiving xdata: %s", err.Error()))
		}
	}

	r.records = r.records[:0]
	r.xdataRecords = r.xdataRecords[:0]
}

// Close stores pending archive records and closes the open flight's logs
// without finalizing them.
func (r *Recorder) Close(ctx context.Context) error {
	r.flush(ctx)
	if r.session == nil {
		return nil
	}

	err := r.session.Close()
	r.session = nil
	r.metrics.ActiveFlight.Set(0)
	return err
}
