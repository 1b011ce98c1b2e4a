package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/domain"
)

var ErrUnknownEventType = errors.New("unknown event type")

// Rebuild turns a parsed envelope body back into a typed fact. It must
// fail on missing or mistyped payload fields rather than partially
// construct an event.
type Rebuild func(body Body) (domain.Event, error)

type entry struct {
	rebuild Rebuild
	version int
}

// Registry maps fact type names to reconstruction functions. It is an
// explicit instance handed to the consumer, not process-global state.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register is idempotent per type name; a later registration overwrites.
func (r *Registry) Register(name string, version int, fn Rebuild) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = entry{rebuild: fn, version: version}
}

func (r *Registry) Resolve(name string) (Rebuild, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownEventType, name)
	}
	return e.rebuild, e.version, nil
}

// StockRegistry returns a registry pre-populated with every stock fact.
func StockRegistry() *Registry {
	r := NewRegistry()
	r.Register(domain.StockItemCreatedName, 1, rebuildStockItemCreated)
	r.Register(domain.StockReservedName, 1, rebuildStockReserved)
	r.Register(domain.ReservationReleasedName, 1, rebuildReservationReleased)
	r.Register(domain.StockAdjustedName, 1, rebuildStockAdjusted)
	return r
}

func rebuildStockItemCreated(b Body) (domain.Event, error) {
	base, err := rebuildBase(b)
	if err != nil {
		return nil, err
	}
	name, err := stringAttr(b, "name")
	if err != nil {
		return nil, err
	}
	quantity, err := intAttr(b, "quantity")
	if err != nil {
		return nil, err
	}
	return domain.StockItemCreated{BaseEvent: base, Name: name, Quantity: quantity}, nil
}

func rebuildStockReserved(b Body) (domain.Event, error) {
	base, err := rebuildBase(b)
	if err != nil {
		return nil, err
	}
	stockItemID, err := stringAttr(b, "stockItemId")
	if err != nil {
		return nil, err
	}
	quantity, err := intAttr(b, "quantity")
	if err != nil {
		return nil, err
	}
	reservationID, err := stringAttr(b, "reservationId")
	if err != nil {
		return nil, err
	}
	return domain.StockReserved{
		BaseEvent:     base,
		StockItemID:   stockItemID,
		Quantity:      quantity,
		ReservationID: reservationID,
	}, nil
}

func rebuildReservationReleased(b Body) (domain.Event, error) {
	base, err := rebuildBase(b)
	if err != nil {
		return nil, err
	}
	reservationID, err := stringAttr(b, "reservationId")
	if err != nil {
		return nil, err
	}
	quantity, err := intAttr(b, "quantity")
	if err != nil {
		return nil, err
	}
	return domain.ReservationReleased{
		BaseEvent:     base,
		ReservationID: reservationID,
		Quantity:      quantity,
	}, nil
}

func rebuildStockAdjusted(b Body) (domain.Event, error) {
	base, err := rebuildBase(b)
	if err != nil {
		return nil, err
	}
	previous, err := intAttr(b, "previousQuantity")
	if err != nil {
		return nil, err
	}
	current, err := intAttr(b, "newQuantity")
	if err != nil {
		return nil, err
	}
	adjustmentType, err := stringAttr(b, "adjustmentType")
	if err != nil {
		return nil, err
	}
	reason, _ := stringAttr(b, "reason")
	return domain.StockAdjusted{
		BaseEvent:        base,
		PreviousQuantity: previous,
		NewQuantity:      current,
		AdjustmentType:   adjustmentType,
		Reason:           reason,
	}, nil
}

func rebuildBase(b Body) (domain.BaseEvent, error) {
	eventID, err := domain.ParseIdentifier(b.ID)
	if err != nil {
		return domain.BaseEvent{}, fmt.Errorf("%w: event id: %v", ErrMalformedEnvelope, err)
	}
	aggregateID, err := domain.ParseIdentifier(b.AggregateID)
	if err != nil {
		return domain.BaseEvent{}, fmt.Errorf("%w: aggregate id: %v", ErrMalformedEnvelope, err)
	}
	return domain.RehydrateBaseEvent(eventID, aggregateID, b.OccurredOn), nil
}

func stringAttr(b Body, key string) (string, error) {
	v, ok := b.Attributes[key]
	if !ok {
		return "", fmt.Errorf("%w: missing attribute %q", ErrMalformedEnvelope, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: attribute %q is not a string", ErrMalformedEnvelope, key)
	}
	return s, nil
}

func intAttr(b Body, key string) (int64, error) {
	v, ok := b.Attributes[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing attribute %q", ErrMalformedEnvelope, key)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	default:
		return 0, fmt.Errorf("%w: attribute %q is not a number", ErrMalformedEnvelope, key)
	}
}
