package domain

// Routing keys double as event type names.
const (
	StockItemCreatedName    = "inventory.stock_item.created"
	StockReservedName       = "inventory.stock_item.reserved"
	ReservationReleasedName = "inventory.stock_item.reservation_released"
	StockAdjustedName       = "inventory.stock_item.adjusted"
)

// Adjustment directions recorded on StockAdjusted.
const (
	AdjustmentAddition  = "ADDITION"
	AdjustmentReduction = "REDUCTION"
)

type StockItemCreated struct {
	BaseEvent
	Name     string
	Quantity int64
}

func (StockItemCreated) EventName() string { return StockItemCreatedName }
func (StockItemCreated) EventVersion() int { return 1 }

func (e StockItemCreated) Attributes() map[string]any {
	return map[string]any{
		"name":     e.Name,
		"quantity": e.Quantity,
	}
}

type StockReserved struct {
	BaseEvent
	StockItemID   string
	Quantity      int64
	ReservationID string
}

func (StockReserved) EventName() string { return StockReservedName }
func (StockReserved) EventVersion() int { return 1 }

func (e StockReserved) Attributes() map[string]any {
	return map[string]any{
		"stockItemId":   e.StockItemID,
		"quantity":      e.Quantity,
		"reservationId": e.ReservationID,
	}
}

type ReservationReleased struct {
	BaseEvent
	ReservationID string
	Quantity      int64
}

func (ReservationReleased) EventName() string { return ReservationReleasedName }
func (ReservationReleased) EventVersion() int { return 1 }

func (e ReservationReleased) Attributes() map[string]any {
	return map[string]any{
		"reservationId": e.ReservationID,
		"quantity":      e.Quantity,
	}
}

type StockAdjusted struct {
	BaseEvent
	PreviousQuantity int64
	NewQuantity      int64
	AdjustmentType   string
	Reason           string
}

func (StockAdjusted) EventName() string { return StockAdjustedName }
func (StockAdjusted) EventVersion() int { return 1 }

func (e StockAdjusted) Attributes() map[string]any {
	return map[string]any{
		"previousQuantity": e.PreviousQuantity,
		"newQuantity":      e.NewQuantity,
		"adjustmentType":   e.AdjustmentType,
		"reason":           e.Reason,
	}
}
