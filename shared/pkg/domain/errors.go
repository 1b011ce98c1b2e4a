package domain

import (
	"errors"
	"fmt"
)

// Validation errors: the input itself is unusable. Never retried.
var (
	ErrInvalidIdentifier  = errors.New("invalid identifier")
	ErrNegativeQuantity   = errors.New("quantity cannot be negative")
	ErrQuantityTooLarge   = errors.New("quantity exceeds maximum")
	ErrInvalidName        = errors.New("name must be between 1 and 100 characters")
	ErrZeroQuantity       = errors.New("quantity must be positive")
	ErrZeroDelta          = errors.New("adjustment delta cannot be zero")
	ErrEmptyReservationID = errors.New("reservation id cannot be empty")
)

// Business-rule errors: a valid request the current state cannot honor.
// Never retried; the aggregate stays unchanged.
var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReduceBelowReserved = errors.New("cannot reduce total quantity below reserved quantity")
	ErrNegativeAdjustment  = errors.New("adjustment would make total quantity negative")
	ErrInvariantViolation  = errors.New("stock item invariant violated")
)

// Persistence-level errors shared by repositories.
var (
	ErrStockItemNotFound = errors.New("stock item not found")
	ErrVersionConflict   = errors.New("stock item was modified concurrently")
)

// InsufficientStockError carries both sides of the failed comparison so
// callers can report what was actually available.
type InsufficientStockError struct {
	Available int64
	Requested int64
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: available %d, requested %d", e.Available, e.Requested)
}
