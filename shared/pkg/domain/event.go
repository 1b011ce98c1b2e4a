package domain

import (
	"reflect"
	"time"
)

// Event is an immutable fact about one aggregate instance. Attributes
// returns the type-specific payload as it crosses the wire; eventVersion
// is appended by the envelope, not by the event itself.
type Event interface {
	EventID() Identifier
	AggregateID() Identifier
	OccurredOn() time.Time
	EventName() string
	EventVersion() int
	Attributes() map[string]any
}

// BaseEvent carries the fields every fact shares. Concrete facts embed it.
type BaseEvent struct {
	id          Identifier
	aggregateID Identifier
	occurredOn  time.Time
}

// NewBaseEvent stamps a fresh event id and the current time.
func NewBaseEvent(aggregateID Identifier) BaseEvent {
	return BaseEvent{
		id:          NewIdentifier(),
		aggregateID: aggregateID,
		occurredOn:  time.Now().UTC(),
	}
}

// RehydrateBaseEvent builds a base with explicit id and timestamp, for
// reconstruction from the wire and for deterministic tests.
func RehydrateBaseEvent(eventID, aggregateID Identifier, occurredOn time.Time) BaseEvent {
	return BaseEvent{id: eventID, aggregateID: aggregateID, occurredOn: occurredOn}
}

func (e BaseEvent) EventID() Identifier     { return e.id }
func (e BaseEvent) AggregateID() Identifier { return e.aggregateID }
func (e BaseEvent) OccurredOn() time.Time   { return e.occurredOn }

// EventsEqual compares origin, type name and payload. Event id and
// timestamp are deliberately excluded: two facts describing the same
// change are equal even when stamped independently.
func EventsEqual(a, b Event) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.AggregateID() == b.AggregateID() &&
		a.EventName() == b.EventName() &&
		reflect.DeepEqual(a.Attributes(), b.Attributes())
}
