// Package handlers provides HTTP handlers for portfolio construction.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/quantscale/internal/domain"
	"github.com/aristath/quantscale/internal/services"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	portfolioService *services.PortfolioService
	log              zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(portfolioService *services.PortfolioService, log zerolog.Logger) *Handler {
	return &Handler{
		portfolioService: portfolioService,
		log:              log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleConstruct handles POST /api/portfolio/construct
func (h *Handler) HandleConstruct(w http.ResponseWriter, r *http.Request) {
	var req domain.ConstructRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn().Err(err).Msg("Invalid construct request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.portfolioService.ConstructAndExplain(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// writeDomainError maps error kinds to HTTP statuses and emits the
// structured error body callers branch on.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsKind(err, domain.KindConfig):
		status = http.StatusBadRequest
	case domain.IsKind(err, domain.KindData), domain.IsKind(err, domain.KindInfeasible):
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

	h.log.Error().Err(err).Int("status", status).Msg("Construct request failed")
	h.writeJSON(w, status, body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
