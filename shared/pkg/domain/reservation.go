package domain

import "time"

// Reservation is a time-bounded hold on part of a stock item's quantity.
// It lives inside the aggregate and is keyed by ID, unique per item.
type Reservation struct {
	ID         string
	Quantity   Quantity
	ReservedAt time.Time
	ExpiresAt  *time.Time
	Reason     string
}

// Expired reports whether the hold lapsed at or before now. A reservation
// without an expiry never expires.
func (r Reservation) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}
