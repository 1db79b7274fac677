package hostfeed

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

const (
	// DecodeErrorsThreshold defines the number of consecutive decode errors allowed
	DecodeErrorsThreshold = 5

	maxLineSize = 1 << 20
)

var (
	// ErrTooManyDecodeErrors is returned when the number of consecutive decode errors exceeds the threshold
	ErrTooManyDecodeErrors = errors.New("too many consecutive decode errors")

	// ErrBrokenFeed is returned when reading from the feed fails
	ErrBrokenFeed = errors.New("broken feed")
)

// WithLogger sets the logger for the reader
func WithLogger(logger *slog.Logger) func(r *Reader) {
	return func(r *Reader) {
		r.logger = logger.With(slog.String("feed", r.name))
	}
}

// WithDecodeErrorsThreshold sets the threshold for consecutive decode errors
func WithDecodeErrorsThreshold(threshold int) func(r *Reader) {
	return func(r *Reader) {
		r.decodeErrorsThreshold = threshold
	}
}

// Reader turns a stream of notifications into events.
type Reader struct {
	name string
	src  io.Reader

	decodeErrorsThreshold int
	logger                *slog.Logger
}

// NewReader creates a Reader over src with a discard logger. name identifies
// the feed in logs.
func NewReader(name string, src io.Reader, options ...func(r *Reader)) *Reader {
	r := Reader{
		name:                  name,
		src:                   src,
		decodeErrorsThreshold: DecodeErrorsThreshold,
		logger:                slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Run reads notifications until the feed ends, the context is cancelled or
// too many consecutive notifications fail to decode. It closes events before
// returning. A source that is an io.Closer is closed on cancellation to
// unblock a pending read.
//
// Run returns nil at the end of the feed.
func (r *Reader) Run(ctx context.Context, events chan<- sounding.Event) error {
	defer close(events)

	if c, ok := r.src.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	r.logger.Info("reading host notifications...")

	var decodeErrors int

	scanner := bufio.NewScanner(r.src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		ev, err := Decode(line)
		if err != nil {
			decodeErrors++
			r.logger.Warn(fmt.Sprintf("error decoding notification: %s", err.Error()), slog.String("line", string(line)))

			if decodeErrors >= r.decodeErrorsThreshold {
				return ErrTooManyDecodeErrors
			}

			continue
		}

		decodeErrors = 0 // reset counter

		select {
		case events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrBrokenFeed, err)
	}

	r.logger.Info("host notifications ended")
	return nil
}
