package table

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

const (
	// DefaultMaxAttempts bounds the widening header-skip retry.
	DefaultMaxAttempts = 10

	// CommentsPrefix starts the trailer appended when a flight is finalized.
	CommentsPrefix = "Comments:"
)

var (
	// ErrLayout is returned by a Schema when a row has a field count the
	// format never produces.
	ErrLayout = errors.New("unexpected number of fields")

	// ErrTimestamp is returned by a Schema when a row's time columns cannot be
	// decoded.
	ErrTimestamp = errors.New("invalid timestamp")
)

// Schema decodes the data rows of one log format.
//
// Decode returns a structural error (ErrLayout, ErrTimestamp) when the row
// cannot belong to the format. An error matching sounding.ErrMalformedFrame is
// not structural: the returned row is kept and the frame is counted.
type Schema[T any] interface {
	Name() string
	Decode(fields []string) (Row[T], error)
}

// UnparsableError is returned when every parse attempt failed.
type UnparsableError struct {
	Path     string
	Attempts int
	Err      error // cause of the last failed attempt
}

func (e *UnparsableError) Error() string {
	return fmt.Sprintf("%s: %s after %d attempts: %s", sounding.ErrUnparsableFile, e.Path, e.Attempts, e.Err)
}

func (e *UnparsableError) Is(target error) bool {
	return target == sounding.ErrUnparsableFile
}

func (e *UnparsableError) Unwrap() error {
	return e.Err
}

// RowError locates a structural failure.
type RowError struct {
	Line  int // 1-based line number in the file
	After int // data rows decoded before the failing line
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

type options struct {
	maxAttempts int
}

// Option configures Parse.
type Option func(*options)

// WithMaxAttempts sets how many header-skip counts are tried before the file
// is declared unparsable.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// Parse reads the file at path and decodes its data rows with schema.
//
// The first attempt skips expectedHeaderLines lines. Each structural failure
// skips one more line and tries again, up to the configured number of
// attempts. The skip only widens over lines above the first data row: a
// failure that follows a decoded row ends the retry. A file that fails yields
// an *UnparsableError and no table. A file with no data rows yet yields an
// empty table.
func Parse[T any](path string, schema Schema[T], expectedHeaderLines int, opts ...Option) (*Table[T], error) {
	o := options{maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	lines, partial := splitLines(data)

	var (
		lastErr  error
		attempts int
	)
	for attempts < o.maxAttempts {
		skip := max(expectedHeaderLines, 0) + attempts
		attempts++

		t, err := parseLines(lines, skip, schema)
		if err != nil {
			lastErr = err

			// a wider skip would drop the rows already decoded
			var rowErr *RowError
			if errors.As(err, &rowErr) && rowErr.After > 0 {
				break
			}
			continue
		}

		t.Path = path
		t.SkippedLines = min(skip, len(lines))
		t.Attempts = attempts
		t.DroppedPartial = partial
		return t, nil
	}

	return nil, &UnparsableError{
		Path:     path,
		Attempts: attempts,
		Err:      fmt.Errorf("%s: %w", schema.Name(), lastErr),
	}
}

// splitLines splits data into lines without terminators. A last line that
// has no terminator is still being written and is left out.
func splitLines(data []byte) (lines []string, partial bool) {
	if len(data) == 0 {
		return nil, false
	}

	chunks := bytes.Split(data, []byte{'\n'})

	last := chunks[len(chunks)-1]
	chunks = chunks[:len(chunks)-1]
	partial = len(bytes.TrimSpace(last)) > 0

	lines = make([]string, len(chunks))
	for i, c := range chunks {
		lines[i] = string(bytes.TrimRight(c, "\r"))
	}
	return lines, partial
}

func parseLines[T any](lines []string, skip int, schema Schema[T]) (*Table[T], error) {
	t := Table[T]{}
	decoded := 0

	for i := skip; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if comments, ok := strings.CutPrefix(line, CommentsPrefix); ok {
			t.Comments = strings.TrimSpace(comments)
			break
		}

		row, err := schema.Decode(strings.Fields(line))
		if err != nil {
			if !errors.Is(err, sounding.ErrMalformedFrame) {
				return nil, &RowError{Line: i + 1, After: decoded, Err: err}
			}
			t.MalformedFrames++
		}
		decoded++

		if n := len(t.Rows); n > 0 && row.Time < t.Rows[n-1].Time {
			// chronology broken: the rows that follow belong to another flight
			t.Rows = t.Rows[:0]
			t.Restarts++
		}
		t.Rows = append(t.Rows, row)
	}

	return &t, nil
}
