/**
 * TaxService runs tax-loss harvesting over the current universe snapshot.
 *
 * It refreshes lot prices from the history store, feeds the tax engine the
 * snapshot's sector metadata and, when available, a correlation matrix from
 * the risk model so proxies track the harvested names closely.
 */
package services

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/quantscale/internal/domain"
	"github.com/aristath/quantscale/internal/modules/risk"
	"github.com/aristath/quantscale/internal/modules/tax"
	"github.com/aristath/quantscale/internal/modules/universe"
)

// TaxService exposes harvest scans and the pre-trade wash-sale gate.
type TaxService struct {
	snapshots   SnapshotProvider
	history     universe.HistoryDBInterface
	riskBuilder *risk.ModelBuilder
	engine      *tax.Engine
	log         zerolog.Logger
}

// NewTaxService wires the tax engine to universe and market data.
func NewTaxService(
	snapshots SnapshotProvider,
	history universe.HistoryDBInterface,
	riskBuilder *risk.ModelBuilder,
	engine *tax.Engine,
	log zerolog.Logger,
) *TaxService {
	return &TaxService{
		snapshots:   snapshots,
		history:     history,
		riskBuilder: riskBuilder,
		engine:      engine,
		log:         log.With().Str("component", "tax_service").Logger(),
	}
}

/**
 * HarvestLosses scans the supplied lots for harvestable losses.
 *
 * Lot prices are refreshed from the latest stored prices. Correlation data is
 * best effort: if the risk model cannot be built the scan proceeds without it
 * and proxies fall back to sector order.
 *
 * Returned opportunities are NOT wash-sale screened; callers must gate each
 * one through CheckWashSale before trading.
 */
func (s *TaxService) HarvestLosses(lots []*domain.TaxLot) ([]domain.HarvestOpportunity, error) {
	if len(lots) == 0 {
		return nil, domain.ConfigError("tax.harvest", "no tax lots supplied")
	}

	snap, err := s.snapshots.Current()
	if err != nil {
		return nil, err
	}
	candidates := snap.Tickers()

	symbols := make([]string, 0, len(lots))
	seen := make(map[string]bool, len(lots))
	for _, lot := range lots {
		if !seen[lot.Symbol] {
			seen[lot.Symbol] = true
			symbols = append(symbols, lot.Symbol)
		}
	}

	prices, err := s.history.LatestPrices(symbols)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to refresh lot prices, using supplied prices")
		prices = nil
	}

	var correlations *risk.CorrelationMatrix
	if model, err := s.riskBuilder.BuildRiskModel(snap.Symbols(), 0); err != nil {
		s.log.Warn().Err(err).Msg("No risk model for proxy selection, using sector order")
	} else {
		correlations = risk.ComputeCorrelation(model.Covariance)
	}

	return s.engine.HarvestLosses(lots, prices, candidates, correlations), nil
}

// CheckWashSale reports whether selling symbol on saleDate would violate the
// wash-sale window given the supplied transaction history.
func (s *TaxService) CheckWashSale(symbol string, saleDate time.Time, history []domain.Transaction) bool {
	return s.engine.CheckWashSale(symbol, saleDate, history)
}
