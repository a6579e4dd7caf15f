// Package handlers provides HTTP handlers for tax-loss harvesting.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/quantscale/internal/domain"
	"github.com/aristath/quantscale/internal/services"
)

// Handler handles tax HTTP requests
type Handler struct {
	taxService *services.TaxService
	log        zerolog.Logger
}

// NewHandler creates a new tax handler
func NewHandler(taxService *services.TaxService, log zerolog.Logger) *Handler {
	return &Handler{
		taxService: taxService,
		log:        log.With().Str("handler", "tax").Logger(),
	}
}

// HarvestRequest carries the tax lots to scan.
type HarvestRequest struct {
	Lots []*domain.TaxLot `json:"lots"`
}

// HarvestResponse lists the opportunities found. Opportunities are not
// wash-sale screened; run each through the wash-sale check before trading.
type HarvestResponse struct {
	Opportunities []domain.HarvestOpportunity `json:"opportunities"`
}

// WashSaleCheckRequest asks whether selling a symbol on a date is safe.
type WashSaleCheckRequest struct {
	Symbol       string               `json:"symbol"`
	SaleDate     string               `json:"sale_date"` // YYYY-MM-DD
	Transactions []domain.Transaction `json:"transactions"`
}

// WashSaleCheckResponse reports the verdict.
type WashSaleCheckResponse struct {
	Symbol   string `json:"symbol"`
	SaleDate string `json:"sale_date"`
	Unsafe   bool   `json:"unsafe"`
}

// HandleHarvest handles POST /api/tax/harvest
func (h *Handler) HandleHarvest(w http.ResponseWriter, r *http.Request) {
	var req HarvestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn().Err(err).Msg("Invalid harvest request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	opportunities, err := h.taxService.HarvestLosses(req.Lots)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, HarvestResponse{Opportunities: opportunities})
}

// HandleWashSaleCheck handles POST /api/tax/wash-sale-check
func (h *Handler) HandleWashSaleCheck(w http.ResponseWriter, r *http.Request) {
	var req WashSaleCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn().Err(err).Msg("Invalid wash-sale request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}
	saleDate, err := time.Parse("2006-01-02", req.SaleDate)
	if err != nil {
		http.Error(w, "sale_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	unsafe := h.taxService.CheckWashSale(req.Symbol, saleDate, req.Transactions)

	h.writeJSON(w, http.StatusOK, WashSaleCheckResponse{
		Symbol:   req.Symbol,
		SaleDate: req.SaleDate,
		Unsafe:   unsafe,
	})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsKind(err, domain.KindConfig):
		status = http.StatusBadRequest
	case domain.IsKind(err, domain.KindData):
		status = http.StatusUnprocessableEntity
	}

	body := map[string]interface{}{
		"error": map[string]interface{}{
			"kind":   "internal",
			"reason": err.Error(),
		},
	}
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		body["error"] = map[string]interface{}{
			"kind":   string(domainErr.Kind),
			"op":     domainErr.Op,
			"reason": domainErr.Reason,
		}
	}

	h.log.Error().Err(err).Int("status", status).Msg("Tax request failed")
	h.writeJSON(w, status, body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
