package sounding

const (
	ReadyForRelease   SystemEventKind = "ReadyForRelease"
	SoundingCompleted SystemEventKind = "SoundingCompleted"
)

// SystemEventKind names a sounding lifecycle event.
type SystemEventKind string

// Event is a host notification. The set of implementations is closed:
// SystemEvent, PositionEvent, PtuEvent and XDataEvent.
type Event interface {
	event()
}

// SystemEvent signals a flight lifecycle transition. Flight carries the host
// metadata queried at the time of the event.
type SystemEvent struct {
	Kind   SystemEventKind
	Flight Flight
}

// PositionEvent carries an unfiltered GPS result.
type PositionEvent struct {
	Sample PositionSample
}

// PtuEvent carries a raw PTU measurement. Channels the host flagged as not ok
// are already MissingValue.
type PtuEvent struct {
	Sample PtuSample
}

// XDataEvent carries an auxiliary sensor frame and the notification kind it
// was delivered as.
type XDataEvent struct {
	Source XDataSource
	Sample XDataSample

	// FrameErr is set when the payload is a malformed frame. Both
	// frequencies of Sample are then MissingValue.
	FrameErr error
}

func (SystemEvent) event()   {}
func (PositionEvent) event() {}
func (PtuEvent) event()      {}
func (XDataEvent) event()    {}
