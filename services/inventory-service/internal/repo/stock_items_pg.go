package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/domain"
)

// StockItemsPG persists the aggregate as one row, reservations as jsonb.
// Saves are guarded by the version the row held when the aggregate was
// loaded: pending (undrained) facts tell us how far the in-memory
// version has moved since.
type StockItemsPG struct {
	DB *pgxpool.Pool
}

type reservationRow struct {
	ID         string     `json:"id"`
	Quantity   int64      `json:"quantity"`
	ReservedAt time.Time  `json:"reservedAt"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

func (r *StockItemsPG) Get(ctx context.Context, id domain.Identifier) (*domain.StockItem, error) {
	var (
		name             string
		totalQuantity    int64
		reservedQuantity int64
		reservationsJSON string
		version          int
	)
	err := r.DB.QueryRow(ctx, `
		select name, total_quantity, reserved_quantity, reservations::text, version
		from stock_items
		where id = $1
	`, id.String()).Scan(&name, &totalQuantity, &reservedQuantity, &reservationsJSON, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrStockItemNotFound, id.String())
	}
	if err != nil {
		return nil, err
	}

	var rows []reservationRow
	if err := json.Unmarshal([]byte(reservationsJSON), &rows); err != nil {
		return nil, fmt.Errorf("decode reservations for %s: %w", id.String(), err)
	}
	reservations := make([]domain.Reservation, 0, len(rows))
	for _, row := range rows {
		quantity, err := domain.NewQuantity(row.Quantity)
		if err != nil {
			return nil, fmt.Errorf("decode reservation %q: %w", row.ID, err)
		}
		reservations = append(reservations, domain.Reservation{
			ID:         row.ID,
			Quantity:   quantity,
			ReservedAt: row.ReservedAt,
			ExpiresAt:  row.ExpiresAt,
			Reason:     row.Reason,
		})
	}

	total, err := domain.NewQuantity(totalQuantity)
	if err != nil {
		return nil, err
	}
	reserved, err := domain.NewQuantity(reservedQuantity)
	if err != nil {
		return nil, err
	}
	return domain.RehydrateStockItem(id, name, total, reserved, reservations, version), nil
}

func (r *StockItemsPG) Create(ctx context.Context, item *domain.StockItem) error {
	reservations, err := encodeReservations(item)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `
		insert into stock_items (id, name, total_quantity, reserved_quantity, reservations, version, created_at, updated_at)
		values ($1, $2, $3, $4, $5::jsonb, $6, now(), now())
	`,
		item.ID().String(),
		item.Name(),
		item.TotalQuantity().Value(),
		item.ReservedQuantity().Value(),
		reservations,
		item.Version(),
	)
	return err
}

func (r *StockItemsPG) Save(ctx context.Context, item *domain.StockItem) error {
	reservations, err := encodeReservations(item)
	if err != nil {
		return err
	}
	loadedVersion := item.Version() - len(item.PendingEvents())

	ct, err := r.DB.Exec(ctx, `
		update stock_items
		set name = $2,
		    total_quantity = $3,
		    reserved_quantity = $4,
		    reservations = $5::jsonb,
		    version = $6,
		    updated_at = now()
		where id = $1 and version = $7
	`,
		item.ID().String(),
		item.Name(),
		item.TotalQuantity().Value(),
		item.ReservedQuantity().Value(),
		reservations,
		item.Version(),
		loadedVersion,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrVersionConflict, item.ID().String())
	}
	return nil
}

func encodeReservations(item *domain.StockItem) (string, error) {
	reservations := item.Reservations()
	rows := make([]reservationRow, 0, len(reservations))
	for _, res := range reservations {
		rows = append(rows, reservationRow{
			ID:         res.ID,
			Quantity:   res.Quantity.Value(),
			ReservedAt: res.ReservedAt,
			ExpiresAt:  res.ExpiresAt,
			Reason:     res.Reason,
		})
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
