package tui

import (
	"github.com/dm/essnap-go/internal/events"
)

// EventMsg delivers one engine event to the progress view.
type EventMsg struct{ Event events.Event }

// DoneMsg signals that the workflow goroutine finished. Err carries the
// workflow-level failure, if any; per-snapshot outcomes live in the report
// the caller holds.
type DoneMsg struct{ Err error }

// ChanSink adapts a buffered channel into an events.Sink so a workflow
// running in its own goroutine can feed the Bubble Tea event loop. Emit
// drops events when the channel is full rather than blocking the engine.
type ChanSink struct {
	C chan events.Event
}

// NewChanSink returns a sink with room for a polling session's worth of
// events.
func NewChanSink() *ChanSink {
	return &ChanSink{C: make(chan events.Event, 256)}
}

// Emit implements events.Sink.
func (s *ChanSink) Emit(ev events.Event) {
	select {
	case s.C <- ev:
	default:
	}
}

// Close releases waiting receivers once the workflow is done.
func (s *ChanSink) Close() { close(s.C) }
