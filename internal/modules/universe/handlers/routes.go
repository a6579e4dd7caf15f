package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers universe admin routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin/universe", func(r chi.Router) {
		r.Post("/refresh", h.HandleRefresh)
	})
}
