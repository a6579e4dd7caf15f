package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all risk diagnostics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		r.Get("/correlations", h.HandleGetCorrelations)
		r.Get("/securities/{symbol}/volatility", func(w http.ResponseWriter, r *http.Request) {
			symbol := chi.URLParam(r, "symbol")
			h.HandleGetSecurityVolatility(w, r, symbol)
		})
	})
}
