// Package events carries committed workflow facts from the module that
// commits them to the modules that react, notification fan-out first among
// them. Payload types live in internal/events; this package only routes them.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is a committed workflow fact, routed by name.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent is embedded by every payload type. ID correlates the handler
// logs of one occurrence.
type BaseEvent struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// EventID returns the occurrence id, uuid.Nil for events built without NewBaseEvent.
func (e BaseEvent) EventID() uuid.UUID { return e.ID }

// NewBaseEvent stamps a new occurrence in UTC.
func NewBaseEvent() BaseEvent {
	return BaseEvent{ID: uuid.New(), Timestamp: time.Now().UTC()}
}

// Handler reacts to one event. Returned errors are logged by the bus and
// never reach the publisher of an asynchronous event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes events to the handlers subscribed under their name.
type Bus interface {
	// Publish hands the event to every handler without waiting.
	Publish(ctx context.Context, event Event)
	// PublishSync runs every handler before returning and joins their errors.
	PublishSync(ctx context.Context, event Event) error
	// Subscribe registers handler for events whose EventName is eventName.
	Subscribe(eventName string, handler Handler)
}

// idOf returns the occurrence id of event when it embeds BaseEvent.
func idOf(event Event) uuid.UUID {
	if e, ok := event.(interface{ EventID() uuid.UUID }); ok {
		return e.EventID()
	}
	return uuid.Nil
}
