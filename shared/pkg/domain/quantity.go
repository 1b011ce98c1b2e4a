package domain

import "fmt"

// MaxQuantity bounds any single quantity value.
const MaxQuantity = 1_000_000_000

// Quantity is a non-negative bounded amount of stock. Arithmetic returns
// new values and never mutates the receiver.
type Quantity struct {
	value int64
}

func NewQuantity(v int64) (Quantity, error) {
	if v < 0 {
		return Quantity{}, fmt.Errorf("%w: %d", ErrNegativeQuantity, v)
	}
	if v > MaxQuantity {
		return Quantity{}, fmt.Errorf("%w: %d", ErrQuantityTooLarge, v)
	}
	return Quantity{value: v}, nil
}

// MustQuantity panics on an out-of-range value. For constants and tests.
func MustQuantity(v int64) Quantity {
	q, err := NewQuantity(v)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quantity) Value() int64 { return q.value }

func (q Quantity) IsZero() bool { return q.value == 0 }

func (q Quantity) Add(other Quantity) (Quantity, error) {
	return NewQuantity(q.value + other.value)
}

func (q Quantity) Subtract(other Quantity) (Quantity, error) {
	return NewQuantity(q.value - other.value)
}

func (q Quantity) LessThan(other Quantity) bool { return q.value < other.value }

func (q Quantity) GreaterThan(other Quantity) bool { return q.value > other.value }
