// Package service holds the use-case layer: load an aggregate, run one
// operation, save it, then drain and publish its facts. Facts are never
// drained before the save commits.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/domain"
)

type StockItemRepository interface {
	Get(ctx context.Context, id domain.Identifier) (*domain.StockItem, error)
	Create(ctx context.Context, item *domain.StockItem) error
	// Save commits the new state or fails entirely; a concurrent writer
	// surfaces as domain.ErrVersionConflict.
	Save(ctx context.Context, item *domain.StockItem) error
}

type EventPublisher interface {
	Publish(ctx context.Context, events []domain.Event) error
}

type StockItems struct {
	Repo      StockItemRepository
	Publisher EventPublisher
	Log       zerolog.Logger
}

func (s *StockItems) Create(ctx context.Context, name string, initialQuantity int64) (*domain.StockItem, error) {
	quantity, err := domain.NewQuantity(initialQuantity)
	if err != nil {
		return nil, err
	}
	item, err := domain.NewStockItem(domain.NewIdentifier(), name, quantity)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.Create(ctx, item); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, item); err != nil {
		return item, err
	}
	return item, nil
}

func (s *StockItems) Get(ctx context.Context, id string) (*domain.StockItem, error) {
	itemID, err := domain.ParseIdentifier(id)
	if err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, itemID)
}

func (s *StockItems) Reserve(ctx context.Context, id, reservationID string, quantity int64, expiresAt *time.Time, reason string) (*domain.StockItem, error) {
	q, err := domain.NewQuantity(quantity)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(item *domain.StockItem) error {
		return item.Reserve(q, reservationID, expiresAt, reason)
	})
}

func (s *StockItems) ReleaseReservation(ctx context.Context, id, reservationID string) (*domain.StockItem, error) {
	return s.mutate(ctx, id, func(item *domain.StockItem) error {
		return item.ReleaseReservation(reservationID)
	})
}

func (s *StockItems) AddStock(ctx context.Context, id string, quantity int64, reason string) (*domain.StockItem, error) {
	q, err := domain.NewQuantity(quantity)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(item *domain.StockItem) error {
		return item.AddStock(q, reason)
	})
}

func (s *StockItems) AdjustStock(ctx context.Context, id string, delta int64, reason string) (*domain.StockItem, error) {
	return s.mutate(ctx, id, func(item *domain.StockItem) error {
		return item.AdjustStock(delta, reason)
	})
}

// ReleaseExpired releases every lapsed reservation on the item and
// returns how many were released. Zero released skips the save.
func (s *StockItems) ReleaseExpired(ctx context.Context, id string) (int, error) {
	itemID, err := domain.ParseIdentifier(id)
	if err != nil {
		return 0, err
	}
	item, err := s.Repo.Get(ctx, itemID)
	if err != nil {
		return 0, err
	}
	released, err := item.ReleaseExpiredReservations()
	if err != nil {
		return 0, err
	}
	if released == 0 {
		return 0, nil
	}
	if err := s.Repo.Save(ctx, item); err != nil {
		return 0, err
	}
	return released, s.publish(ctx, item)
}

func (s *StockItems) mutate(ctx context.Context, id string, op func(*domain.StockItem) error) (*domain.StockItem, error) {
	itemID, err := domain.ParseIdentifier(id)
	if err != nil {
		return nil, err
	}
	item, err := s.Repo.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := op(item); err != nil {
		return nil, err
	}
	if err := s.Repo.Save(ctx, item); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, item); err != nil {
		return item, err
	}
	return item, nil
}

// publish drains the fact buffer after a durable write. A publish
// failure is surfaced: the state change stands, but the caller must
// know delivery degraded.
func (s *StockItems) publish(ctx context.Context, item *domain.StockItem) error {
	evts := item.PullEvents()
	if len(evts) == 0 {
		return nil
	}
	if err := s.Publisher.Publish(ctx, evts); err != nil {
		s.Log.Error().Err(err).Str("stock_item_id", item.ID().String()).Msg("fact publication failed after save")
		return fmt.Errorf("state saved but fact publication failed: %w", err)
	}
	return nil
}
