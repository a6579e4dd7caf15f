package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all tax routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tax", func(r chi.Router) {
		r.Post("/harvest", h.HandleHarvest)
		r.Post("/wash-sale-check", h.HandleWashSaleCheck)
	})
}
