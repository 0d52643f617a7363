// Package intake accepts emitted events from other services over Kafka and
// hands them to the orchestrator.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
)

// Event is the wire form of an emitted event.
type Event struct {
	EventID   string          `json:"event_id"`
	EventName string          `json:"event_name"`
	Actor     domain.Actor    `json:"actor"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	EmittedAt int64           `json:"emitted_at"`
}

// NewEvent creates an event with a fresh id and the current time.
func NewEvent(name string, actor domain.Actor, payload json.RawMessage) *Event {
	return &Event{
		EventID:   uuid.NewString(),
		EventName: name,
		Actor:     actor,
		Payload:   payload,
		EmittedAt: time.Now().UnixMilli(),
	}
}

// Validate checks that the event can be dispatched.
func (e *Event) Validate() error {
	if e.EventName == "" {
		return fmt.Errorf("event_name cannot be empty")
	}
	if len(e.Payload) > 0 && !json.Valid(e.Payload) {
		return fmt.Errorf("payload is not valid JSON")
	}
	return nil
}

// DecodeEvent parses and validates a wire event.
func DecodeEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// Emitter dispatches one event and returns the number of rules dispatched.
type Emitter interface {
	EmitEvent(ctx context.Context, eventName string, actor domain.Actor, payload any) int
}
