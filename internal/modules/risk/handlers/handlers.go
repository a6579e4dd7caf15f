// Package handlers provides HTTP handlers for risk diagnostics.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/quantscale/internal/domain"
	"github.com/aristath/quantscale/internal/modules/risk"
	"github.com/aristath/quantscale/internal/modules/universe"
	"github.com/aristath/quantscale/pkg/formulas"
)

const defaultCorrelationThreshold = 0.95

// SnapshotProvider supplies the current universe snapshot.
type SnapshotProvider interface {
	Current() (*universe.Snapshot, error)
}

// Handler handles risk diagnostics HTTP requests
type Handler struct {
	history     universe.HistoryDBInterface
	riskBuilder *risk.ModelBuilder
	snapshots   SnapshotProvider
	log         zerolog.Logger
}

// NewHandler creates a new risk diagnostics handler
func NewHandler(
	history universe.HistoryDBInterface,
	riskBuilder *risk.ModelBuilder,
	snapshots SnapshotProvider,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		history:     history,
		riskBuilder: riskBuilder,
		snapshots:   snapshots,
		log:         log.With().Str("handler", "risk").Logger(),
	}
}

// VolatilityResponse is the payload for the per-symbol volatility endpoint.
type VolatilityResponse struct {
	Symbol               string  `json:"symbol"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	Observations         int     `json:"observations"`
}

// HandleGetSecurityVolatility handles GET /api/risk/securities/{symbol}/volatility
func (h *Handler) HandleGetSecurityVolatility(w http.ResponseWriter, r *http.Request, symbol string) {
	startDate := time.Now().AddDate(0, 0, -(risk.DefaultLookbackDays*7/5 + 10)).Format("2006-01-02")
	prices, err := h.history.GetDailyPrices(symbol, startDate)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if len(prices) < 2 {
		h.writeDomainError(w, domain.DataError("risk.volatility", "insufficient price history for %s", symbol))
		return
	}

	closes := make([]float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Close
	}
	returns := formulas.CalculateReturns(closes)

	h.writeJSON(w, http.StatusOK, VolatilityResponse{
		Symbol:               symbol,
		AnnualizedVolatility: formulas.AnnualizedVolatility(returns),
		Observations:         len(returns),
	})
}

// CorrelationsResponse is the payload for the correlation diagnostics endpoint.
type CorrelationsResponse struct {
	Threshold float64                `json:"threshold"`
	Symbols   int                    `json:"symbols"`
	Pairs     []risk.CorrelationPair `json:"pairs"`
}

// HandleGetCorrelations handles GET /api/risk/correlations
// It builds the risk model over the current universe and reports symbol
// pairs whose shrunk correlation exceeds the threshold query parameter.
func (h *Handler) HandleGetCorrelations(w http.ResponseWriter, r *http.Request) {
	threshold := defaultCorrelationThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 || parsed >= 1 {
			http.Error(w, "threshold must be a number in (0, 1)", http.StatusBadRequest)
			return
		}
		threshold = parsed
	}

	snap, err := h.snapshots.Current()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	model, err := h.riskBuilder.BuildRiskModel(snap.Symbols(), risk.DefaultLookbackDays)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	corr := risk.ComputeCorrelation(model.Covariance)
	pairs := corr.HighCorrelations(threshold)
	if pairs == nil {
		pairs = []risk.CorrelationPair{}
	}

	h.writeJSON(w, http.StatusOK, CorrelationsResponse{
		Threshold: threshold,
		Symbols:   model.Covariance.Dim(),
		Pairs:     pairs,
	})
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

	h.log.Error().Err(err).Int("status", status).Msg("Risk request failed")
	h.writeJSON(w, status, body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
