package sounding

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedFrame is returned when a hex sub-field cannot be decoded.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrNoMatchingFile is returned when a directory scan finds no candidates,
	// usually because no flight is in progress yet.
	ErrNoMatchingFile = errors.New("no matching file")

	// ErrUnparsableFile is returned when a file still fails to parse after the
	// bounded retry escalation.
	ErrUnparsableFile = errors.New("unparsable file")
)

// FrameError describes a failed hex sub-field decode.
type FrameError struct {
	Payload string
	Start   int
	End     int
	Err     error // underlying cause, if any
}

func (e *FrameError) Error() string {
	msg := fmt.Sprintf("%s: payload %q [%d:%d)", ErrMalformedFrame, e.Payload, e.Start, e.End)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FrameError) Is(target error) bool {
	return target == ErrMalformedFrame
}

func (e *FrameError) Unwrap() error {
	return e.Err
}
