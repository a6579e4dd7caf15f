package risk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/quantscale/internal/domain"
	"github.com/aristath/quantscale/internal/modules/calculations"
	"github.com/aristath/quantscale/internal/modules/universe"
)

// DefaultLookbackDays is the price history window used when the caller does
// not specify one.
const DefaultLookbackDays = 252

// highCorrelationThreshold triggers a diagnostic log line for asset pairs
// that move almost in lockstep.
const highCorrelationThreshold = 0.95

// cachedRiskModel is the msgpack shape stored in the optimizer cache.
type cachedRiskModel struct {
	Symbols []string             `msgpack:"symbols"`
	Cov     [][]float64          `msgpack:"cov"`
	Returns map[string][]float64 `msgpack:"returns"`
	Dates   []string             `msgpack:"dates"`
}

// RiskModel bundles the covariance estimate with the returns panel that
// produced it. The panel symbols and matrix symbols always match.
type RiskModel struct {
	Covariance *CovarianceMatrix
	Panel      *domain.ReturnsPanel
}

// ModelBuilder builds shrinkage covariance matrices from historical prices,
// caching results for a day when a cache is configured.
type ModelBuilder struct {
	history universe.HistoryDBInterface
	cache   *calculations.Cache
	log     zerolog.Logger
}

// NewModelBuilder creates a risk model builder.
func NewModelBuilder(history universe.HistoryDBInterface, log zerolog.Logger) *ModelBuilder {
	return &ModelBuilder{
		history: history,
		log:     log.With().Str("component", "risk_model").Logger(),
	}
}

// SetCache enables covariance caching. Optional; without it every call
// recomputes from price history.
func (mb *ModelBuilder) SetCache(cache *calculations.Cache) {
	mb.cache = cache
}

// hashSymbols creates a deterministic cache key from symbols and lookback.
// Symbols are sorted so the key is independent of input order.
func hashSymbols(symbols []string, lookbackDays int) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)
	keyData := fmt.Sprintf("%s|%d", strings.Join(sorted, ","), lookbackDays)
	h := sha256.Sum256([]byte(keyData))
	return hex.EncodeToString(h[:16])
}

// BuildReturnsPanel loads price history for the given symbols and aligns it
// into a returns panel. Symbols with too many missing observations are
// dropped rather than failing the whole panel.
func (mb *ModelBuilder) BuildReturnsPanel(symbols []string, lookbackDays int) (*domain.ReturnsPanel, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	if len(symbols) == 0 {
		return nil, domain.DataError("risk.panel", "no symbols to build panel from")
	}

	// Fetch extra calendar days so the window still covers lookbackDays
	// trading days after weekends and holidays.
	startDate := time.Now().AddDate(0, 0, -(lookbackDays*7/5 + 10)).Format("2006-01-02")

	prices := make(map[string][]PricePoint, len(symbols))
	for _, symbol := range symbols {
		history, err := mb.history.GetDailyPrices(symbol, startDate)
		if err != nil {
			mb.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to get prices for symbol")
			continue
		}
		if len(history) < 2 {
			mb.log.Debug().Str("symbol", symbol).Int("points", len(history)).
				Msg("Insufficient price history, skipping symbol")
			continue
		}
		points := make([]PricePoint, len(history))
		for i, p := range history {
			points[i] = PricePoint{Date: p.Date, Close: p.Close}
		}
		prices[symbol] = points
	}

	if len(prices) == 0 {
		return nil, domain.DataError("risk.panel", "no usable price history for %d symbols", len(symbols))
	}

	panel, err := BuildPanelFromPrices(prices)
	if err != nil {
		return nil, err
	}

	// Trim to the most recent lookbackDays observations.
	if panel.NumObservations() > lookbackDays {
		offset := panel.NumObservations() - lookbackDays
		trimmed := &domain.ReturnsPanel{
			Dates:   panel.Dates[offset:],
			Symbols: panel.Symbols,
			Returns: make(map[string][]float64, len(panel.Symbols)),
		}
		for _, symbol := range panel.Symbols {
			trimmed.Returns[symbol] = panel.Returns[symbol][offset:]
		}
		panel = trimmed
	}

	return panel, nil
}

// BuildRiskModel loads prices, builds the returns panel and estimates the
// shrinkage covariance matrix. Results are cached for 24 hours.
func (mb *ModelBuilder) BuildRiskModel(symbols []string, lookbackDays int) (*RiskModel, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	cacheKey := hashSymbols(symbols, lookbackDays)

	if mb.cache != nil {
		var cached cachedRiskModel
		ok, err := mb.cache.GetOptimizer("covariance", cacheKey, &cached)
		if err != nil {
			mb.log.Warn().Err(err).Msg("Failed to read cached covariance, recalculating")
		} else if ok {
			model, err := modelFromCache(&cached)
			if err == nil {
				mb.log.Debug().
					Int("num_symbols", len(cached.Symbols)).
					Str("hash", cacheKey[:8]).
					Msg("Using cached covariance matrix")
				return model, nil
			}
			mb.log.Warn().Err(err).Msg("Cached covariance invalid, recalculating")
		}
	}

	mb.log.Info().
		Int("num_symbols", len(symbols)).
		Int("lookback_days", lookbackDays).
		Msg("Building risk model")

	panel, err := mb.BuildReturnsPanel(symbols, lookbackDays)
	if err != nil {
		return nil, err
	}

	cov, err := ComputeCovariance(panel)
	if err != nil {
		return nil, err
	}

	mb.logHighCorrelations(cov)

	if mb.cache != nil {
		cached := cachedRiskModel{
			Symbols: cov.Symbols(),
			Cov:     cov.Rows(),
			Returns: panel.Returns,
			Dates:   panel.Dates,
		}
		if err := mb.cache.SetOptimizer("covariance", cacheKey, &cached, calculations.TTLOptimizer); err != nil {
			mb.log.Warn().Err(err).Str("hash", cacheKey[:8]).Msg("Failed to cache covariance matrix")
		}
	}

	return &RiskModel{Covariance: cov, Panel: panel}, nil
}

// logHighCorrelations emits a diagnostic line per asset pair whose
// correlation exceeds the threshold. Near-duplicate assets make the
// optimization ill-conditioned and are worth surfacing.
func (mb *ModelBuilder) logHighCorrelations(cov *CovarianceMatrix) {
	corr := ComputeCorrelation(cov)
	for _, pair := range corr.HighCorrelations(highCorrelationThreshold) {
		mb.log.Debug().
			Str("symbol1", pair.Symbol1).
			Str("symbol2", pair.Symbol2).
			Float64("correlation", pair.Correlation).
			Msg("Highly correlated asset pair")
	}
}

func modelFromCache(cached *cachedRiskModel) (*RiskModel, error) {
	cov, err := NewCovarianceMatrixFromRows(cached.Symbols, cached.Cov)
	if err != nil {
		return nil, err
	}
	panel := &domain.ReturnsPanel{
		Dates:   cached.Dates,
		Symbols: cached.Symbols,
		Returns: cached.Returns,
	}
	return &RiskModel{Covariance: cov, Panel: panel}, nil
}
