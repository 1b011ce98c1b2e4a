package domain

import (
	"testing"
	"time"
)

func TestEventsEqualIgnoresIDAndTimestamp(t *testing.T) {
	aggregate := NewIdentifier()

	a := StockReserved{
		BaseEvent:     NewBaseEvent(aggregate),
		StockItemID:   aggregate.String(),
		Quantity:      5,
		ReservationID: "R1",
	}
	b := StockReserved{
		BaseEvent:     RehydrateBaseEvent(NewIdentifier(), aggregate, time.Now().Add(-time.Hour)),
		StockItemID:   aggregate.String(),
		Quantity:      5,
		ReservationID: "R1",
	}
	if !EventsEqual(a, b) {
		t.Fatal("same origin, type and payload should be equal")
	}

	c := b
	c.Quantity = 6
	if EventsEqual(a, c) {
		t.Fatal("different payloads should not be equal")
	}

	d := StockReserved{
		BaseEvent:     NewBaseEvent(NewIdentifier()),
		StockItemID:   a.StockItemID,
		Quantity:      5,
		ReservationID: "R1",
	}
	if EventsEqual(a, d) {
		t.Fatal("different origins should not be equal")
	}

	released := ReservationReleased{
		BaseEvent:     NewBaseEvent(aggregate),
		ReservationID: "R1",
		Quantity:      5,
	}
	if EventsEqual(a, released) {
		t.Fatal("different types should not be equal")
	}
}

func TestBaseEventDefaults(t *testing.T) {
	aggregate := NewIdentifier()
	before := time.Now().UTC()
	e := NewBaseEvent(aggregate)
	after := time.Now().UTC()

	if e.EventID().IsZero() {
		t.Fatal("event id not generated")
	}
	if e.AggregateID() != aggregate {
		t.Fatal("aggregate id lost")
	}
	if e.OccurredOn().Before(before) || e.OccurredOn().After(after) {
		t.Fatalf("occurredOn %v outside [%v, %v]", e.OccurredOn(), before, after)
	}
}

func TestRehydrateBaseEventIsDeterministic(t *testing.T) {
	eventID := NewIdentifier()
	aggregateID := NewIdentifier()
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	e := RehydrateBaseEvent(eventID, aggregateID, at)
	if e.EventID() != eventID || e.AggregateID() != aggregateID || !e.OccurredOn().Equal(at) {
		t.Fatalf("rehydrated base drifted: %+v", e)
	}
}
