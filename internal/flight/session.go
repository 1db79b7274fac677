// Package flight records a sounding flight from host notifications into the
// Raw and XData logs.
package flight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roman-kulish/sounding-telemetry/internal/merge"
	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

const (
	RawPrefix   = "RawData_"
	XDataPrefix = "XData_"

	// CommentsPrefix starts the line appended to both logs when a flight is
	// completed.
	CommentsPrefix = "Comments: "

	xdataLineTerminator = "\n"
)

// RawFileName returns the Raw log name of a flight.
func RawFileName(f sounding.Flight) string {
	return RawPrefix + f.Stamp() + "_" + f.RadiosondeID + ".txt"
}

// XDataFileName returns the XData log name of a flight.
func XDataFileName(f sounding.Flight) string {
	return XDataPrefix + f.Stamp() + "_" + f.RadiosondeID + ".txt"
}

// Session holds the state of the flight being recorded. It is created when
// the radiosonde is ready for release and discarded when the sounding is
// completed.
type Session struct {
	Flight    sounding.Flight
	FlightID  int64 // archive ID, 0 when not archived
	RawPath   string
	XDataPath string

	raw   *os.File
	xdata *os.File

	latestPTU      *sounding.PtuSample
	latestPosition *sounding.PositionSample

	err error // first write failure; the session records nothing after it
}

// NewSession creates both logs of f in dir and writes their headers.
func NewSession(dir string, f sounding.Flight) (s *Session, err error) {
	s = &Session{
		Flight:    f,
		RawPath:   filepath.Join(dir, RawFileName(f)),
		XDataPath: filepath.Join(dir, XDataFileName(f)),
	}

	if s.raw, err = createLog(s.RawPath, merge.Header+merge.LineTerminator); err != nil {
		return nil, err
	}

	header := strings.Join(merge.XDataHeader(), xdataLineTerminator) + xdataLineTerminator
	if s.xdata, err = createLog(s.XDataPath, header); err != nil {
		_ = s.raw.Close()
		return nil, err
	}

	return s, nil
}

func createLog(path, header string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err = f.WriteString(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("writing header to %s: %w", path, err)
	}
	return f, nil
}

// Failed returns the write failure that stopped the session, if any.
func (s *Session) Failed() error {
	return s.err
}

// UpdatePTU keeps p as the latest PTU sample. It returns false, keeping the
// held sample, unless p is newer.
func (s *Session) UpdatePTU(p sounding.PtuSample) bool {
	if s.latestPTU != nil && p.Time <= s.latestPTU.Time {
		return false
	}
	s.latestPTU = &p
	return true
}

// UpdatePosition keeps p as the latest position. It returns false, keeping
// the held sample, unless p is newer.
func (s *Session) UpdatePosition(p sounding.PositionSample) bool {
	if s.latestPosition != nil && p.Time <= s.latestPosition.Time {
		return false
	}
	s.latestPosition = &p
	return true
}

// Synchronized returns the synchronized line of the latest PTU and position
// samples. ready is false while one of them has not been received yet; ok is
// false when both are held but do not share a rounded second.
func (s *Session) Synchronized() (line string, record sounding.PtuSample, ready, ok bool) {
	if s.latestPTU == nil || s.latestPosition == nil {
		return "", sounding.PtuSample{}, false, false
	}

	line, ok = merge.Synchronize(*s.latestPTU, *s.latestPosition, s.Flight.RadioResetTime)
	if !ok {
		return "", sounding.PtuSample{}, true, false
	}
	return line, merge.Merge(*s.latestPTU, *s.latestPosition), true, true
}

// WriteRaw appends a line to the Raw log.
func (s *Session) WriteRaw(line string) error {
	return s.write(s.raw, line+merge.LineTerminator)
}

// WriteXData appends a line to the XData log.
func (s *Session) WriteXData(line string) error {
	return s.write(s.xdata, line+xdataLineTerminator)
}

// every line goes out in a single write so that a reader never sees more
// than one partial line
func (s *Session) write(f *os.File, data string) error {
	if s.err != nil {
		return s.err
	}
	if _, err := f.WriteString(data); err != nil {
		s.err = fmt.Errorf("%w: writing %s: %w", ErrRecordingFailed, f.Name(), err)
		return s.err
	}
	return nil
}

// Finish appends the comments line to both logs, when there are comments,
// and closes them.
func (s *Session) Finish(comments string) error {
	var errs []error
	if comments = strings.TrimSpace(comments); comments != "" && s.err == nil {
		errs = append(errs,
			s.WriteRaw(CommentsPrefix+comments),
			s.WriteXData(CommentsPrefix+comments),
		)
	}
	errs = append(errs, s.Close())
	return errors.Join(errs...)
}

// Close closes both logs. It is safe to call Close multiple times.
func (s *Session) Close() error {
	var errs []error
	for _, f := range []**os.File{&s.raw, &s.xdata} {
		if *f == nil {
			continue
		}
		if err := (*f).Close(); err != nil {
			errs = append(errs, fmt.Errorf("%w: closing %s: %w", ErrRecordingFailed, (*f).Name(), err))
		}
		*f = nil
	}
	return errors.Join(errs...)
}
