package agent

import (
	"encoding/json"

	"github.com/termite-dev/termite/internal/llm"
	"github.com/termite-dev/termite/internal/tools"
)

// EventKind identifies what happened in the agent loop.
type EventKind string

const (
	EventToolStarted       EventKind = "tool_started"
	EventToolFinished      EventKind = "tool_finished"
	EventThinkingEmitted   EventKind = "thinking"
	EventFinalMessage      EventKind = "final_message"
	EventMaxIterationsHit  EventKind = "max_iterations"
	EventUsageReported     EventKind = "usage"
	EventErrorRaised       EventKind = "error"
	EventApprovalRequested EventKind = "approval_requested"
	EventInterrupted       EventKind = "interrupted"
	EventTurnEnded         EventKind = "turn_ended"
)

// Event is one observation from the loop. Fields are populated per kind:
// tool events carry ToolName/ToolCallID/Args/Result, text events carry Text,
// usage events carry Usage.
type Event struct {
	Kind       EventKind
	ToolName   string
	ToolCallID string
	Args       json.RawMessage
	Result     *tools.Result
	Text       string
	Usage      *llm.Usage
	Iteration  int
	State      State
}

// Emitter fans events out to a single consumer over a buffered channel.
// Emit never blocks the loop: when the consumer falls behind, events are
// dropped rather than stalling tool execution.
type Emitter struct {
	ch chan Event
}

// NewEmitter returns an emitter with the given buffer size.
func NewEmitter(buffer int) *Emitter {
	if buffer <= 0 {
		buffer = 256
	}
	return &Emitter{ch: make(chan Event, buffer)}
}

// Events returns the receive side of the stream.
func (e *Emitter) Events() <-chan Event {
	return e.ch
}

// Emit delivers the event if the consumer has room.
func (e *Emitter) Emit(ev Event) {
	if e == nil {
		return
	}
	select {
	case e.ch <- ev:
	default:
	}
}

// Close ends the stream. The loop calls this when it shuts down.
func (e *Emitter) Close() {
	if e != nil {
		close(e.ch)
	}
}
