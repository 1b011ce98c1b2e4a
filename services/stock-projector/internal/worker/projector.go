// Package worker projects stock facts into Redis so the query side can
// answer availability reads without touching the command store.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/domain"
)

// Cache is the slice of the Redis wrapper the projection needs.
type Cache interface {
	HSet(ctx context.Context, key string, fields map[string]any) error
	HIncrBy(ctx context.Context, key, field string, delta int64) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

// dedupTTL bounds how long processed event ids are remembered. Redelivery
// windows are far shorter in practice.
const dedupTTL = 7 * 24 * time.Hour

// Projection maintains one hash per stock item: name, total, reserved.
// Redelivered facts are detected by event id and skipped, which keeps
// the increment-based updates idempotent.
type Projection struct {
	Cache Cache
	Log   zerolog.Logger
}

func (p *Projection) Name() string { return "stock-projector" }

func (p *Projection) SubscribedTo() []string {
	return []string{
		domain.StockItemCreatedName,
		domain.StockReservedName,
		domain.ReservationReleasedName,
		domain.StockAdjustedName,
	}
}

func (p *Projection) Handle(ctx context.Context, event domain.Event) error {
	dedupKey := "stock:events:" + event.EventID().String()
	fresh, err := p.Cache.SetNX(ctx, dedupKey, "1", dedupTTL)
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}
	if !fresh {
		p.Log.Debug().
			Str("event_id", event.EventID().String()).
			Str("type", event.EventName()).
			Msg("duplicate delivery skipped")
		return nil
	}

	if err := p.apply(ctx, event); err != nil {
		// Un-mark the event so the redelivery is applied instead of
		// skipped as a duplicate.
		if delErr := p.Cache.Del(ctx, dedupKey); delErr != nil {
			p.Log.Error().Err(delErr).
				Str("event_id", event.EventID().String()).
				Msg("dedup rollback failed")
		}
		return err
	}
	return nil
}

func (p *Projection) apply(ctx context.Context, event domain.Event) error {
	key := "stock:" + event.AggregateID().String()
	switch e := event.(type) {
	case domain.StockItemCreated:
		return p.Cache.HSet(ctx, key, map[string]any{
			"name":     e.Name,
			"total":    e.Quantity,
			"reserved": int64(0),
		})
	case domain.StockReserved:
		return p.Cache.HIncrBy(ctx, key, "reserved", e.Quantity)
	case domain.ReservationReleased:
		return p.Cache.HIncrBy(ctx, key, "reserved", -e.Quantity)
	case domain.StockAdjusted:
		return p.Cache.HSet(ctx, key, map[string]any{"total": e.NewQuantity})
	default:
		p.Log.Warn().Str("type", event.EventName()).Msg("unexpected fact type")
		return nil
	}
}
