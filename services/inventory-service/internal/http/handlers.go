package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aaronwittchen/logistics-platform-sub000/services/inventory-service/internal/service"
	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/breaker"
	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/domain"
	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/rabbit"
)

type Handlers struct {
	Svc *service.StockItems
	Log zerolog.Logger
}

type reservationResp struct {
	ID         string     `json:"id"`
	Quantity   int64      `json:"quantity"`
	ReservedAt time.Time  `json:"reservedAt"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

type stockItemResp struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	TotalQuantity     int64             `json:"totalQuantity"`
	ReservedQuantity  int64             `json:"reservedQuantity"`
	AvailableQuantity int64             `json:"availableQuantity"`
	Version           int               `json:"version"`
	Reservations      []reservationResp `json:"reservations"`
}

func toResp(item *domain.StockItem) stockItemResp {
	reservations := item.Reservations()
	out := make([]reservationResp, 0, len(reservations))
	for _, res := range reservations {
		out = append(out, reservationResp{
			ID:         res.ID,
			Quantity:   res.Quantity.Value(),
			ReservedAt: res.ReservedAt,
			ExpiresAt:  res.ExpiresAt,
			Reason:     res.Reason,
		})
	}
	return stockItemResp{
		ID:                item.ID().String(),
		Name:              item.Name(),
		TotalQuantity:     item.TotalQuantity().Value(),
		ReservedQuantity:  item.ReservedQuantity().Value(),
		AvailableQuantity: item.AvailableQuantity().Value(),
		Version:           item.Version(),
		Reservations:      out,
	}
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handlers) CreateStockItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string `json:"name"`
		InitialQuantity int64  `json:"initialQuantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	item, err := h.Svc.Create(r.Context(), req.Name, req.InitialQuantity)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResp(item))
}

func (h *Handlers) GetStockItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResp(item))
}

func (h *Handlers) Reserve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReservationID string     `json:"reservationId"`
		Quantity      int64      `json:"quantity"`
		ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
		Reason        string     `json:"reason,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	item, err := h.Svc.Reserve(r.Context(), chi.URLParam(r, "id"), req.ReservationID, req.Quantity, req.ExpiresAt, req.Reason)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResp(item))
}

func (h *Handlers) ReleaseReservation(w http.ResponseWriter, r *http.Request) {
	item, err := h.Svc.ReleaseReservation(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "reservationId"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResp(item))
}

func (h *Handlers) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta  int64  `json:"delta"`
		Reason string `json:"reason,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	item, err := h.Svc.AdjustStock(r.Context(), chi.URLParam(r, "id"), req.Delta, req.Reason)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResp(item))
}

func (h *Handlers) AddStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int64  `json:"quantity"`
		Reason   string `json:"reason,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	item, err := h.Svc.AddStock(r.Context(), chi.URLParam(r, "id"), req.Quantity, req.Reason)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResp(item))
}

func (h *Handlers) ReleaseExpired(w http.ResponseWriter, r *http.Request) {
	released, err := h.Svc.ReleaseExpired(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"released": released})
}

func (h *Handlers) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		h.Log.Error().Err(err).Msg("request failed")
	}
	http.Error(w, err.Error(), status)
}

// statusFor maps the error taxonomy onto HTTP: validation 400, business
// rejections 409, missing things 404, infrastructure degradation 503.
func statusFor(err error) int {
	var insufficient domain.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStockItemNotFound),
		errors.Is(err, domain.ErrReservationNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrVersionConflict),
		errors.Is(err, domain.ErrReduceBelowReserved),
		errors.Is(err, domain.ErrNegativeAdjustment):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidIdentifier),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrNegativeQuantity),
		errors.Is(err, domain.ErrQuantityTooLarge),
		errors.Is(err, domain.ErrZeroQuantity),
		errors.Is(err, domain.ErrZeroDelta),
		errors.Is(err, domain.ErrEmptyReservationID):
		return http.StatusBadRequest
	case errors.Is(err, rabbit.ErrNotConnected),
		errors.Is(err, rabbit.ErrDeadLettered),
		errors.Is(err, breaker.ErrOpen):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
