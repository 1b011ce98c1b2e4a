package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/metrics"
)

func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(metrics.Middleware("inventory-service"))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/healthz", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/stock-items", h.CreateStockItem)
		r.Get("/stock-items/{id}", h.GetStockItem)
		r.Post("/stock-items/{id}/reservations", h.Reserve)
		r.Delete("/stock-items/{id}/reservations/{reservationId}", h.ReleaseReservation)
		r.Post("/stock-items/{id}/stock", h.AddStock)
		r.Post("/stock-items/{id}/adjustments", h.AdjustStock)
		r.Post("/stock-items/{id}/expired-reservations/release", h.ReleaseExpired)
	})

	return r
}
