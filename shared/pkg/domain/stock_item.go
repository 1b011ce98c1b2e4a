package domain

import (
	"fmt"
	"sort"
	"time"
)

// StockItem is the reservation-bearing aggregate. All quantity movement
// goes through its operations; each successful mutation records exactly
// one fact per change and bumps the version. Failed operations leave
// both the state and the fact buffer untouched.
type StockItem struct {
	AggregateRoot

	id           Identifier
	name         string
	total        Quantity
	reserved     Quantity
	reservations map[string]Reservation
}

// NewStockItem seeds an item with its initial total quantity and records
// the creation fact. Version is 1 afterwards.
func NewStockItem(id Identifier, name string, initial Quantity) (*StockItem, error) {
	if id.IsZero() {
		return nil, ErrInvalidIdentifier
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	s := &StockItem{
		id:           id,
		name:         name,
		total:        initial,
		reservations: make(map[string]Reservation),
	}
	s.record(StockItemCreated{
		BaseEvent: NewBaseEvent(id),
		Name:      name,
		Quantity:  initial.Value(),
	})
	return s, nil
}

// RehydrateStockItem rebuilds an item from persisted state without
// recording anything.
func RehydrateStockItem(id Identifier, name string, total, reserved Quantity, reservations []Reservation, version int) *StockItem {
	s := &StockItem{
		id:           id,
		name:         name,
		total:        total,
		reserved:     reserved,
		reservations: make(map[string]Reservation, len(reservations)),
	}
	for _, r := range reservations {
		s.reservations[r.ID] = r
	}
	s.restoreVersion(version)
	return s
}

func (s *StockItem) ID() Identifier             { return s.id }
func (s *StockItem) Name() string               { return s.name }
func (s *StockItem) TotalQuantity() Quantity    { return s.total }
func (s *StockItem) ReservedQuantity() Quantity { return s.reserved }

func (s *StockItem) AvailableQuantity() Quantity {
	available, _ := s.total.Subtract(s.reserved)
	return available
}

func (s *StockItem) Reservation(reservationID string) (Reservation, bool) {
	r, ok := s.reservations[reservationID]
	return r, ok
}

// Reservations returns the live holds sorted by id.
func (s *StockItem) Reservations() []Reservation {
	out := make([]Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reserve places or updates a hold. A lapsed hold under the same id is
// released first (lazy expiry). Re-reserving a live id adjusts the
// reserved total by the delta instead of double-counting.
func (s *StockItem) Reserve(quantity Quantity, reservationID string, expiresAt *time.Time, reason string) error {
	if reservationID == "" {
		return ErrEmptyReservationID
	}
	if existing, ok := s.reservations[reservationID]; ok && existing.Expired(time.Now().UTC()) {
		if err := s.ReleaseReservation(reservationID); err != nil {
			return err
		}
	}
	if quantity.IsZero() {
		return ErrZeroQuantity
	}
	if s.AvailableQuantity().LessThan(quantity) {
		return InsufficientStockError{
			Available: s.AvailableQuantity().Value(),
			Requested: quantity.Value(),
		}
	}

	newReserved := s.reserved
	if existing, ok := s.reservations[reservationID]; ok {
		withoutOld, err := newReserved.Subtract(existing.Quantity)
		if err != nil {
			return err
		}
		newReserved, err = withoutOld.Add(quantity)
		if err != nil {
			return err
		}
	} else {
		var err error
		newReserved, err = newReserved.Add(quantity)
		if err != nil {
			return err
		}
	}

	reservation := Reservation{
		ID:         reservationID,
		Quantity:   quantity,
		ReservedAt: time.Now().UTC(),
		ExpiresAt:  expiresAt,
		Reason:     reason,
	}
	if existing, ok := s.reservations[reservationID]; ok {
		reservation.ReservedAt = existing.ReservedAt
	}

	// The hold being placed backs the new reserved total.
	if err := checkInvariants(s.total, newReserved, true); err != nil {
		return err
	}

	s.reserved = newReserved
	s.reservations[reservationID] = reservation
	s.record(StockReserved{
		BaseEvent:     NewBaseEvent(s.id),
		StockItemID:   s.id.String(),
		Quantity:      quantity.Value(),
		ReservationID: reservationID,
	})
	return nil
}

// ReleaseReservation removes a hold and gives its quantity back.
func (s *StockItem) ReleaseReservation(reservationID string) error {
	reservation, ok := s.reservations[reservationID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrReservationNotFound, reservationID)
	}
	newReserved, err := s.reserved.Subtract(reservation.Quantity)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}
	if err := checkInvariants(s.total, newReserved, len(s.reservations) > 1); err != nil {
		return err
	}

	s.reserved = newReserved
	delete(s.reservations, reservationID)
	s.record(ReservationReleased{
		BaseEvent:     NewBaseEvent(s.id),
		ReservationID: reservationID,
		Quantity:      reservation.Quantity.Value(),
	})
	return nil
}

// ReleaseExpiredReservations releases every hold whose expiry is at or
// before now, one fact per hold. Callers decide the cadence; there is no
// background sweep.
func (s *StockItem) ReleaseExpiredReservations() (int, error) {
	now := time.Now().UTC()
	var expired []string
	for id, r := range s.reservations {
		if r.Expired(now) {
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	for _, id := range expired {
		if err := s.ReleaseReservation(id); err != nil {
			return 0, err
		}
	}
	return len(expired), nil
}

// AddStock increases the total quantity.
func (s *StockItem) AddStock(quantity Quantity, reason string) error {
	if quantity.IsZero() {
		return ErrZeroQuantity
	}
	newTotal, err := s.total.Add(quantity)
	if err != nil {
		return err
	}
	if err := checkInvariants(newTotal, s.reserved, len(s.reservations) > 0); err != nil {
		return err
	}

	previous := s.total
	s.total = newTotal
	s.record(StockAdjusted{
		BaseEvent:        NewBaseEvent(s.id),
		PreviousQuantity: previous.Value(),
		NewQuantity:      newTotal.Value(),
		AdjustmentType:   AdjustmentAddition,
		Reason:           reason,
	})
	return nil
}

// AdjustStock applies a signed correction to the total quantity. A
// reduction may never cut into quantity already held by reservations.
func (s *StockItem) AdjustStock(delta int64, reason string) error {
	if delta == 0 {
		return ErrZeroDelta
	}
	newValue := s.total.Value() + delta
	if newValue < 0 {
		return fmt.Errorf("%w: %d%+d", ErrNegativeAdjustment, s.total.Value(), delta)
	}
	if delta < 0 && newValue < s.reserved.Value() {
		return fmt.Errorf("%w: new total %d, reserved %d", ErrReduceBelowReserved, newValue, s.reserved.Value())
	}
	newTotal, err := NewQuantity(newValue)
	if err != nil {
		return err
	}
	if err := checkInvariants(newTotal, s.reserved, len(s.reservations) > 0); err != nil {
		return err
	}

	adjustmentType := AdjustmentAddition
	if delta < 0 {
		adjustmentType = AdjustmentReduction
	}
	previous := s.total
	s.total = newTotal
	s.record(StockAdjusted{
		BaseEvent:        NewBaseEvent(s.id),
		PreviousQuantity: previous.Value(),
		NewQuantity:      newTotal.Value(),
		AdjustmentType:   adjustmentType,
		Reason:           reason,
	})
	return nil
}

func validateName(name string) error {
	if len(name) < 1 || len(name) > 100 {
		return ErrInvalidName
	}
	return nil
}

// checkInvariants validates the state an operation is about to commit.
// hasReservations refers to the post-mutation reservation set.
func checkInvariants(total, reserved Quantity, hasReservations bool) error {
	if reserved.GreaterThan(total) {
		return fmt.Errorf("%w: reserved %d exceeds total %d", ErrInvariantViolation, reserved.Value(), total.Value())
	}
	if !hasReservations && !reserved.IsZero() {
		return fmt.Errorf("%w: reserved %d with no backing reservations", ErrInvariantViolation, reserved.Value())
	}
	return nil
}
