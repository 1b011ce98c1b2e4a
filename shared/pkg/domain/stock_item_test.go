package domain

import (
	"errors"
	"testing"
	"time"
)

func newTestItem(t *testing.T, initial int64) *StockItem {
	t.Helper()
	item, err := NewStockItem(NewIdentifier(), "Widget", MustQuantity(initial))
	if err != nil {
		t.Fatalf("NewStockItem: %v", err)
	}
	return item
}

func mustReserve(t *testing.T, item *StockItem, quantity int64, reservationID string) {
	t.Helper()
	if err := item.Reserve(MustQuantity(quantity), reservationID, nil, ""); err != nil {
		t.Fatalf("Reserve(%d, %q): %v", quantity, reservationID, err)
	}
}

func TestNewStockItem(t *testing.T) {
	item := newTestItem(t, 100)

	if item.TotalQuantity().Value() != 100 {
		t.Fatalf("total = %d, want 100", item.TotalQuantity().Value())
	}
	if item.ReservedQuantity().Value() != 0 {
		t.Fatalf("reserved = %d, want 0", item.ReservedQuantity().Value())
	}
	if item.Version() != 1 {
		t.Fatalf("version = %d, want 1 after creation fact", item.Version())
	}

	facts := item.PullEvents()
	if len(facts) != 1 {
		t.Fatalf("expected 1 creation fact, got %d", len(facts))
	}
	created, ok := facts[0].(StockItemCreated)
	if !ok {
		t.Fatalf("expected StockItemCreated, got %T", facts[0])
	}
	if created.Name != "Widget" || created.Quantity != 100 {
		t.Fatalf("creation fact payload: %+v", created)
	}
}

func TestNewStockItemValidatesName(t *testing.T) {
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'x'
	}
	for _, name := range []string{"", string(long)} {
		if _, err := NewStockItem(NewIdentifier(), name, MustQuantity(1)); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("expected ErrInvalidName for %d chars, got %v", len(name), err)
		}
	}
}

func TestReserveReleaseScenario(t *testing.T) {
	// create 100; reserve 25 under R1; reserve 30 under R2; release R1.
	item := newTestItem(t, 100)
	item.PullEvents()

	mustReserve(t, item, 25, "R1")
	if item.AvailableQuantity().Value() != 75 {
		t.Fatalf("available = %d, want 75", item.AvailableQuantity().Value())
	}

	mustReserve(t, item, 30, "R2")
	if item.AvailableQuantity().Value() != 45 {
		t.Fatalf("available = %d, want 45", item.AvailableQuantity().Value())
	}

	if err := item.ReleaseReservation("R1"); err != nil {
		t.Fatalf("release R1: %v", err)
	}
	if item.AvailableQuantity().Value() != 70 {
		t.Fatalf("available = %d, want 70", item.AvailableQuantity().Value())
	}
	if item.ReservedQuantity().Value() != 30 {
		t.Fatalf("reserved = %d, want 30", item.ReservedQuantity().Value())
	}
}

func TestReservedEqualsSumOfLiveReservations(t *testing.T) {
	item := newTestItem(t, 500)
	mustReserve(t, item, 100, "A")
	mustReserve(t, item, 50, "B")
	mustReserve(t, item, 25, "C")
	if err := item.ReleaseReservation("B"); err != nil {
		t.Fatalf("release: %v", err)
	}

	var sum int64
	for _, r := range item.Reservations() {
		sum += r.Quantity.Value()
	}
	if item.ReservedQuantity().Value() != sum {
		t.Fatalf("reserved %d != sum of live reservations %d", item.ReservedQuantity().Value(), sum)
	}
	if item.ReservedQuantity().GreaterThan(item.TotalQuantity()) {
		t.Fatal("reserved exceeds total")
	}
}

func TestReserveExactlyAvailable(t *testing.T) {
	item := newTestItem(t, 10)
	mustReserve(t, item, 10, "all")
	if item.AvailableQuantity().Value() != 0 {
		t.Fatalf("available = %d, want 0", item.AvailableQuantity().Value())
	}

	err := item.Reserve(MustQuantity(1), "more", nil, "")
	var insufficient InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.Available != 0 || insufficient.Requested != 1 {
		t.Fatalf("error payload: %+v", insufficient)
	}
}

func TestReserveInsufficientLeavesStateUnchanged(t *testing.T) {
	item := newTestItem(t, 10)
	item.PullEvents()

	err := item.Reserve(MustQuantity(11), "big", nil, "")
	var insufficient InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.Available != 10 || insufficient.Requested != 11 {
		t.Fatalf("error payload: %+v", insufficient)
	}
	if item.ReservedQuantity().Value() != 0 {
		t.Fatal("failed reserve changed state")
	}
	if len(item.PullEvents()) != 0 {
		t.Fatal("failed reserve recorded a fact")
	}
	if item.Version() != 1 {
		t.Fatalf("failed reserve bumped version to %d", item.Version())
	}
}

func TestReserveFromZeroStockAlwaysFails(t *testing.T) {
	item := newTestItem(t, 0)
	err := item.Reserve(MustQuantity(1), "r", nil, "")
	var insufficient InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
}

func TestReserveRejectsZeroQuantity(t *testing.T) {
	item := newTestItem(t, 10)
	if err := item.Reserve(MustQuantity(0), "r", nil, ""); !errors.Is(err, ErrZeroQuantity) {
		t.Fatalf("expected ErrZeroQuantity, got %v", err)
	}
	if err := item.Reserve(MustQuantity(1), "", nil, ""); !errors.Is(err, ErrEmptyReservationID) {
		t.Fatalf("expected ErrEmptyReservationID, got %v", err)
	}
}

func TestReserveUpdateNeverDoubleCounts(t *testing.T) {
	item := newTestItem(t, 100)
	mustReserve(t, item, 20, "R1")

	// Same id, bigger amount: reserved moves by the delta only.
	mustReserve(t, item, 30, "R1")
	if item.ReservedQuantity().Value() != 30 {
		t.Fatalf("reserved = %d, want 30", item.ReservedQuantity().Value())
	}

	// Same id, smaller amount.
	mustReserve(t, item, 5, "R1")
	if item.ReservedQuantity().Value() != 5 {
		t.Fatalf("reserved = %d, want 5", item.ReservedQuantity().Value())
	}
	if len(item.Reservations()) != 1 {
		t.Fatalf("expected a single reservation, got %d", len(item.Reservations()))
	}
}

func TestReserveLazilyReleasesExpiredHold(t *testing.T) {
	item := newTestItem(t, 100)
	past := time.Now().Add(-time.Minute)
	if err := item.Reserve(MustQuantity(40), "R1", &past, "flash sale"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	item.PullEvents()

	// The expired hold under R1 no longer counts against availability:
	// 90 fits only because the 40 is released first.
	mustReserve(t, item, 90, "R1")
	if item.ReservedQuantity().Value() != 90 {
		t.Fatalf("reserved = %d, want 90", item.ReservedQuantity().Value())
	}

	facts := item.PullEvents()
	if len(facts) != 2 {
		t.Fatalf("expected release + reserve facts, got %d", len(facts))
	}
	if _, ok := facts[0].(ReservationReleased); !ok {
		t.Fatalf("first fact should be the lazy release, got %T", facts[0])
	}
	if _, ok := facts[1].(StockReserved); !ok {
		t.Fatalf("second fact should be the new reservation, got %T", facts[1])
	}
}

func TestReleaseReservationNotFound(t *testing.T) {
	item := newTestItem(t, 10)
	if err := item.ReleaseReservation("missing"); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
}

func TestReleaseExpiredReservations(t *testing.T) {
	item := newTestItem(t, 100)
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	if err := item.Reserve(MustQuantity(10), "expired-a", &past, ""); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := item.Reserve(MustQuantity(20), "expired-b", &past, ""); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := item.Reserve(MustQuantity(30), "live", &future, ""); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := item.Reserve(MustQuantity(5), "forever", nil, ""); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	item.PullEvents()

	released, err := item.ReleaseExpiredReservations()
	if err != nil {
		t.Fatalf("ReleaseExpiredReservations: %v", err)
	}
	if released != 2 {
		t.Fatalf("released = %d, want 2", released)
	}
	if item.ReservedQuantity().Value() != 35 {
		t.Fatalf("reserved = %d, want 35", item.ReservedQuantity().Value())
	}

	facts := item.PullEvents()
	if len(facts) != 2 {
		t.Fatalf("expected one fact per released hold, got %d", len(facts))
	}
	for _, f := range facts {
		if _, ok := f.(ReservationReleased); !ok {
			t.Fatalf("expected ReservationReleased, got %T", f)
		}
	}

	// Nothing left to expire: no-op, no facts.
	released, err = item.ReleaseExpiredReservations()
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if released != 0 {
		t.Fatalf("released = %d, want 0", released)
	}
	if len(item.PullEvents()) != 0 {
		t.Fatal("no-op call recorded facts")
	}
}

func TestAddStock(t *testing.T) {
	item := newTestItem(t, 10)
	item.PullEvents()

	if err := item.AddStock(MustQuantity(15), "restock"); err != nil {
		t.Fatalf("AddStock: %v", err)
	}
	if item.TotalQuantity().Value() != 25 {
		t.Fatalf("total = %d, want 25", item.TotalQuantity().Value())
	}

	facts := item.PullEvents()
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}
	adjusted, ok := facts[0].(StockAdjusted)
	if !ok {
		t.Fatalf("expected StockAdjusted, got %T", facts[0])
	}
	if adjusted.PreviousQuantity != 10 || adjusted.NewQuantity != 25 || adjusted.AdjustmentType != AdjustmentAddition {
		t.Fatalf("fact payload: %+v", adjusted)
	}

	if err := item.AddStock(MustQuantity(0), ""); !errors.Is(err, ErrZeroQuantity) {
		t.Fatalf("expected ErrZeroQuantity, got %v", err)
	}
}

func TestAdjustStock(t *testing.T) {
	item := newTestItem(t, 50)
	mustReserve(t, item, 30, "hold")
	item.PullEvents()

	// Reduction down to reserved level is allowed.
	if err := item.AdjustStock(-20, "shrinkage"); err != nil {
		t.Fatalf("AdjustStock: %v", err)
	}
	if item.TotalQuantity().Value() != 30 {
		t.Fatalf("total = %d, want 30", item.TotalQuantity().Value())
	}
	facts := item.PullEvents()
	adjusted := facts[0].(StockAdjusted)
	if adjusted.AdjustmentType != AdjustmentReduction {
		t.Fatalf("type = %s, want REDUCTION", adjusted.AdjustmentType)
	}

	// Below reserved is not.
	if err := item.AdjustStock(-1, ""); !errors.Is(err, ErrReduceBelowReserved) {
		t.Fatalf("expected ErrReduceBelowReserved, got %v", err)
	}
	// Below zero is not.
	if err := item.AdjustStock(-1000, ""); !errors.Is(err, ErrNegativeAdjustment) {
		t.Fatalf("expected ErrNegativeAdjustment, got %v", err)
	}
	if err := item.AdjustStock(0, ""); !errors.Is(err, ErrZeroDelta) {
		t.Fatalf("expected ErrZeroDelta, got %v", err)
	}
	if item.TotalQuantity().Value() != 30 {
		t.Fatal("failed adjustments changed state")
	}
	if len(item.PullEvents()) != 0 {
		t.Fatal("failed adjustments recorded facts")
	}

	if err := item.AdjustStock(70, "found pallet"); err != nil {
		t.Fatalf("AdjustStock: %v", err)
	}
	adjusted = item.PullEvents()[0].(StockAdjusted)
	if adjusted.AdjustmentType != AdjustmentAddition || adjusted.NewQuantity != 100 {
		t.Fatalf("fact payload: %+v", adjusted)
	}
}

func TestVersionTracksRecordedFacts(t *testing.T) {
	item := newTestItem(t, 100)
	if item.Version() != 1 {
		t.Fatalf("version = %d, want 1", item.Version())
	}

	mustReserve(t, item, 10, "a")
	mustReserve(t, item, 10, "b")
	if err := item.ReleaseReservation("a"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := item.AddStock(MustQuantity(5), ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	if item.Version() != 5 {
		t.Fatalf("version = %d, want 5 (creation + 4 facts)", item.Version())
	}
}

func TestPullEventsDrainsInOrder(t *testing.T) {
	item := newTestItem(t, 100)
	mustReserve(t, item, 10, "a")
	mustReserve(t, item, 10, "b")

	facts := item.PullEvents()
	if len(facts) != 3 {
		t.Fatalf("expected 3 facts, got %d", len(facts))
	}
	wantOrder := []string{StockItemCreatedName, StockReservedName, StockReservedName}
	for i, f := range facts {
		if f.EventName() != wantOrder[i] {
			t.Fatalf("fact %d: %s, want %s", i, f.EventName(), wantOrder[i])
		}
	}
	if facts[1].(StockReserved).ReservationID != "a" || facts[2].(StockReserved).ReservationID != "b" {
		t.Fatal("facts out of recording order")
	}

	if got := item.PullEvents(); len(got) != 0 {
		t.Fatalf("second drain returned %d facts", len(got))
	}
}

func TestRehydrateStockItem(t *testing.T) {
	id := NewIdentifier()
	expires := time.Now().Add(time.Hour)
	item := RehydrateStockItem(id, "Widget", MustQuantity(100), MustQuantity(30), []Reservation{
		{ID: "R1", Quantity: MustQuantity(30), ReservedAt: time.Now(), ExpiresAt: &expires},
	}, 7)

	if item.Version() != 7 {
		t.Fatalf("version = %d, want 7", item.Version())
	}
	if len(item.PullEvents()) != 0 {
		t.Fatal("rehydration recorded facts")
	}
	if _, ok := item.Reservation("R1"); !ok {
		t.Fatal("reservation lost in rehydration")
	}
	if item.AvailableQuantity().Value() != 70 {
		t.Fatalf("available = %d, want 70", item.AvailableQuantity().Value())
	}
}
