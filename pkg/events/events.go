package events

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

type EventType string

const (
	EventTypePlannerStart  EventType = "planner.start"
	EventTypePlannerResult EventType = "planner.result"
	EventTypeToolCall      EventType = "tool.call"
	EventTypeToolResult    EventType = "tool.result"
	EventTypeFinal         EventType = "loop.final"
	EventTypeError         EventType = "loop.error"
)

// Event describes one observable step of the plan/act loop.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Iteration      int       `json:"iteration,omitempty"`
	Tool           string    `json:"tool,omitempty"`
	CallID         string    `json:"call_id,omitempty"`
	Text           string    `json:"text,omitempty"`
	Error          string    `json:"error,omitempty"`
	ToolCallCount  int       `json:"tool_call_count,omitempty"`
	At             time.Time `json:"at"`
}

// New returns an event of the given type stamped with the current time.
func New(typ EventType, conversationID string) Event {
	return Event{Type: typ, ConversationID: conversationID, At: time.Now()}
}

func NewEventFromJson(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, errors.Wrap(err, "decode event")
	}
	if e.Type == "" {
		return Event{}, errors.New("event has no type")
	}
	return e, nil
}

// EventSink receives loop events. Implementations must be safe for concurrent use.
type EventSink interface {
	PublishEvent(event Event) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event) error

func (f EventSinkFunc) PublishEvent(e Event) error { return f(e) }
