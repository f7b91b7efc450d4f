// Package progress carries the ordered event stream of a research run.
// Sequence numbers are assigned at emission under a single lock, so
// observers see a gapless, strictly increasing sequence with exactly one
// terminal event.
package progress

import "time"

// EventType classifies a progress event.
type EventType string

const (
	PhaseStarted  EventType = "phase_started"
	ToolInvoked   EventType = "tool_invoked"
	TaskCompleted EventType = "task_completed"
	TaskFailed    EventType = "task_failed"
	RunCompleted  EventType = "run_completed"
	RunFailed     EventType = "run_failed"
)

// Run phases, in dispatch order.
const (
	PhaseDispatching = "dispatching"
	PhaseAggregating = "aggregating"
	PhaseValidating  = "validating"
)

// Terminal failure causes.
const (
	CauseCancelled  = "cancelled"
	CauseRunTimeout = "run_timeout"
	CauseRejected   = "validation_rejected"
)

// Event is one entry in a run's progress stream.
type Event struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Phase     string    `json:"phase,omitempty"`
	Section   string    `json:"section,omitempty"`
	Tool      string    `json:"tool,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Cause     string    `json:"cause,omitempty"`
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Type == RunCompleted || e.Type == RunFailed
}

// Stream is the write side of one run's event sequence. Emit is safe for
// concurrent use; events after the terminal event are dropped.
type Stream struct {
	ch      chan Event
	done    chan struct{}
	emit    chan Event
	discard bool
}

const defaultBuffer = 256

// NewStream creates a stream whose events are delivered on Events().
// A non-positive buffer falls back to the default.
func NewStream(buffer int) *Stream {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	s := &Stream{
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
		emit: make(chan Event),
	}
	go s.sequence()
	return s
}

// Discard creates a stream that drops every event. Used by callers that
// want a report but no progress feed.
func Discard() *Stream {
	return &Stream{discard: true}
}

// sequence serializes emissions: one goroutine assigns seq numbers and
// closes the channel after the terminal event, so ordering and the
// single-terminal invariant hold regardless of emitter concurrency.
func (s *Stream) sequence() {
	var seq uint64
	for ev := range s.emit {
		seq++
		ev.Seq = seq
		s.ch <- ev
		if ev.Terminal() {
			close(s.ch)
			close(s.done)
			return
		}
	}
}

// Events returns the read side of the stream. The channel is closed after
// the terminal event.
func (s *Stream) Events() <-chan Event {
	return s.ch
}

// Emit queues an event for delivery. Timestamps default to now. Events
// emitted after the terminal event are silently dropped.
func (s *Stream) Emit(ev Event) {
	if s.discard {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	select {
	case s.emit <- ev:
	case <-s.done:
	}
}
