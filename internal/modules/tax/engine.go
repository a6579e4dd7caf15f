// Package tax identifies tax-loss harvesting opportunities and screens
// proposed sales against the wash-sale rule.
package tax

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/quantscale/internal/domain"
	"github.com/aristath/quantscale/internal/modules/risk"
)

const (
	// HarvestThreshold qualifies a lot once its fractional loss reaches 10%.
	HarvestThreshold = -0.10

	// washSaleWindowDays is the lookback for disqualifying buys: a sale on
	// day D is unsafe given a buy in [D−29, D] inclusive.
	washSaleWindowDays = 29

	// DefaultProxyTicker is the broad-market fallback when no same-sector
	// proxy exists.
	DefaultProxyTicker = "SPY"
)

// Engine scans tax lots for harvestable losses and proposes replacement
// proxies. Stateless across calls apart from configuration.
type Engine struct {
	defaultProxy string
	log          zerolog.Logger
}

// NewEngine creates a tax engine. An empty defaultProxy falls back to
// DefaultProxyTicker.
func NewEngine(defaultProxy string, log zerolog.Logger) *Engine {
	if defaultProxy == "" {
		defaultProxy = DefaultProxyTicker
	}
	return &Engine{
		defaultProxy: defaultProxy,
		log:          log.With().Str("component", "tax_engine").Logger(),
	}
}

// HarvestLosses scans lots in input order and proposes one opportunity per
// qualifying lot. Lots of the same losing ticker each produce their own
// opportunity. Current prices are refreshed from marketPrices when present;
// lots missing from the map keep their prior price.
//
// Wash-sale screening is deliberately not applied here: callers must gate
// each opportunity through CheckWashSale before trading on it.
func (e *Engine) HarvestLosses(
	lots []*domain.TaxLot,
	marketPrices map[string]float64,
	candidates []domain.TickerData,
	correlations *risk.CorrelationMatrix,
) []domain.HarvestOpportunity {
	opportunities := make([]domain.HarvestOpportunity, 0)

	for _, lot := range lots {
		if price, ok := marketPrices[lot.Symbol]; ok {
			lot.CurrentPrice = price
		}

		lossFraction := lot.LossFraction()
		if lossFraction > HarvestThreshold {
			continue
		}

		sector := "Unknown"
		for _, c := range candidates {
			if c.Symbol == lot.Symbol {
				sector = c.Sector
				break
			}
		}

		proxy := e.FindProxy(lot.Symbol, sector, candidates, correlations)

		opportunities = append(opportunities, domain.HarvestOpportunity{
			SellTicker:     lot.Symbol,
			BuyProxyTicker: proxy,
			Quantity:       lot.Quantity,
			EstimatedLoss:  math.Abs(lot.UnrealizedPL()),
			Reason:         fmt.Sprintf("Loss of %.1f%% exceeds 10%% threshold", lossFraction*100),
		})
	}

	e.log.Info().
		Int("num_lots", len(lots)).
		Int("num_opportunities", len(opportunities)).
		Msg("Tax-loss harvest scan complete")

	return opportunities
}

// FindProxy picks a same-sector replacement for a losing ticker: the highest
// correlated sector peer when correlations cover the ticker, otherwise the
// first sector peer in input order, otherwise the broad-market default.
func (e *Engine) FindProxy(
	loser string,
	sector string,
	candidates []domain.TickerData,
	correlations *risk.CorrelationMatrix,
) string {
	peers := make([]string, 0)
	for _, c := range candidates {
		if c.Symbol != loser && c.Sector == sector {
			peers = append(peers, c.Symbol)
		}
	}
	if len(peers) == 0 {
		return e.defaultProxy
	}

	if correlations != nil && correlations.Contains(loser) {
		best := ""
		bestCorr := math.Inf(-1)
		for _, peer := range peers {
			if corr, ok := correlations.Corr(loser, peer); ok && corr > bestCorr {
				best = peer
				bestCorr = corr
			}
		}
		if best != "" {
			e.log.Debug().
				Str("loser", loser).
				Str("proxy", best).
				Float64("correlation", bestCorr).
				Msg("Selected proxy by correlation")
			return best
		}
	}

	return peers[0]
}

// CheckWashSale reports whether selling symbol on saleDate is unsafe: true
// when the supplied history contains a buy of the symbol within the
// preceding 29 days or on the sale date itself.
func (e *Engine) CheckWashSale(symbol string, saleDate time.Time, history []domain.Transaction) bool {
	limit := saleDate.AddDate(0, 0, -washSaleWindowDays)

	for _, txn := range history {
		if !strings.EqualFold(txn.Symbol, symbol) || !strings.EqualFold(txn.Type, "buy") {
			continue
		}
		if !txn.Date.Before(limit) && !txn.Date.After(saleDate) {
			return true
		}
	}

	return false
}
