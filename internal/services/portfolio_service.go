/**
 * Package services coordinates the construct-and-explain pipeline across the
 * analytics modules.
 *
 * PortfolioService is the single entry point for building a portfolio:
 * - Universe snapshot and optional market-cap selection strategy
 * - Returns panel and shrinkage covariance from price history
 * - Benchmark weights from market caps
 * - Constrained tracking-error optimization
 * - Trailing-window Brinson-Fachler attribution
 * - Narrative commentary over the attribution report
 *
 * Usage:
 *   result, err := portfolioService.ConstructAndExplain(ctx, req)
 */
package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/quantscale/internal/domain"
	"github.com/aristath/quantscale/internal/modules/attribution"
	"github.com/aristath/quantscale/internal/modules/benchmark"
	"github.com/aristath/quantscale/internal/modules/narrative"
	"github.com/aristath/quantscale/internal/modules/optimization"
	"github.com/aristath/quantscale/internal/modules/risk"
	"github.com/aristath/quantscale/internal/modules/universe"
	"github.com/aristath/quantscale/pkg/formulas"
)

// DefaultAttributionDays is the trailing observation window for the
// attribution stage.
const DefaultAttributionDays = 21

/**
 * PortfolioService runs the full pipeline. All stages are pure functions of
 * the captured snapshot and the request, so independent requests can run
 * concurrently without locking.
 */
type PortfolioService struct {
	snapshots       SnapshotProvider
	riskBuilder     *risk.ModelBuilder
	optimizer       *optimization.Optimizer
	attribution     *attribution.Engine
	reporter        *narrative.Reporter
	lookbackDays    int
	attributionDays int
	benchmarkTicker string
	log             zerolog.Logger
}

// NewPortfolioService wires the pipeline stages together.
func NewPortfolioService(
	snapshots SnapshotProvider,
	riskBuilder *risk.ModelBuilder,
	optimizer *optimization.Optimizer,
	attributionEngine *attribution.Engine,
	reporter *narrative.Reporter,
	lookbackDays int,
	attributionDays int,
	benchmarkTicker string,
	log zerolog.Logger,
) *PortfolioService {
	if lookbackDays <= 0 {
		lookbackDays = risk.DefaultLookbackDays
	}
	if attributionDays <= 0 {
		attributionDays = DefaultAttributionDays
	}
	if benchmarkTicker == "" {
		benchmarkTicker = "SPY"
	}
	return &PortfolioService{
		snapshots:       snapshots,
		riskBuilder:     riskBuilder,
		optimizer:       optimizer,
		attribution:     attributionEngine,
		reporter:        reporter,
		lookbackDays:    lookbackDays,
		attributionDays: attributionDays,
		benchmarkTicker: benchmarkTicker,
		log:             log.With().Str("component", "portfolio_service").Logger(),
	}
}

/**
 * ConstructAndExplain builds a portfolio for the request and explains it.
 *
 * The request is validated before any computation starts; all later failures
 * surface as a single typed error with no partial result. The universe
 * snapshot is captured once at the start so a concurrent refresh never
 * interleaves with the pipeline.
 */
func (s *PortfolioService) ConstructAndExplain(ctx context.Context, req domain.ConstructRequest) (*domain.ConstructResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	log := s.log.With().Str("request_id", requestID).Str("client_id", req.ClientID).Logger()

	snap, err := s.snapshots.Current()
	if err != nil {
		return nil, err
	}

	symbols, err := universe.SelectUniverse(snap, req.Strategy, req.TopN)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("universe_size", len(symbols)).
		Str("strategy", req.Strategy).
		Msg("Constructing portfolio")

	model, err := s.riskBuilder.BuildRiskModel(symbols, s.lookbackDays)
	if err != nil {
		return nil, err
	}

	// Sparse price histories may have been dropped; from here on the
	// covariance symbols are the working universe.
	working := model.Covariance.Symbols()

	benchmarkWeights, err := benchmark.Weights(working, snap.CapMap())
	if err != nil {
		return nil, err
	}

	sectorMap := snap.SectorMap()
	optResult, err := s.optimizer.Optimize(ctx, optimization.Request{
		Covariance:       model.Covariance,
		BenchmarkWeights: benchmarkWeights,
		SectorMap:        sectorMap,
		ExcludedSectors:  req.ExcludedSectors,
		ExcludedTickers:  req.ExcludedTickers,
		MaxWeight:        req.MaxWeight,
	})
	if err != nil {
		return nil, err
	}

	// Re-derive the excluded set for attribution metadata; the narrative
	// layer needs to tell constraint-driven zeros apart from optimizer zeros.
	cons, err := optimization.BuildConstraints(working, sectorMap, req.ExcludedSectors, req.ExcludedTickers, req.MaxWeight, 0)
	if err != nil {
		return nil, err
	}

	periodReturns := trailingReturns(model.Panel, s.attributionDays)
	report, err := s.attribution.Attribute(attribution.Input{
		Universe:         working,
		PortfolioWeights: optResult.Weights,
		BenchmarkWeights: benchmarkWeights,
		PeriodReturns:    periodReturns,
		SectorMap:        sectorMap,
		Excluded:         cons.Excluded,
	})
	if err != nil {
		return nil, err
	}

	benchmarkTicker := req.Benchmark
	if benchmarkTicker == "" {
		benchmarkTicker = s.benchmarkTicker
	}
	report.Narrative = s.reporter.Generate(ctx, narrative.Input{
		Report:        report,
		Exclusions:    append(append([]string{}, req.ExcludedSectors...), req.ExcludedTickers...),
		Benchmark:     benchmarkTicker,
		Status:        optResult.Status,
		TrackingError: optResult.TrackingError,
	})

	weights := make(map[string]float64, len(optResult.Weights))
	for symbol, w := range optResult.Weights {
		if w >= domain.MinDisplayWeight {
			weights[symbol] = w
		}
	}

	log.Info().
		Int("num_positions", len(weights)).
		Float64("tracking_error", optResult.TrackingError).
		Str("status", string(optResult.Status)).
		Msg("Portfolio constructed")

	return &domain.ConstructResult{
		RequestID:     requestID,
		ClientID:      req.ClientID,
		Weights:       weights,
		TrackingError: optResult.TrackingError,
		Status:        optResult.Status,
		Attribution:   report,
	}, nil
}

// validateRequest rejects malformed parameters before any computation.
func validateRequest(req domain.ConstructRequest) error {
	if req.InitialInvestment <= 0 {
		return domain.ConfigError("portfolio.construct", "initial_investment must be positive, got %v", req.InitialInvestment)
	}
	if req.MaxWeight != nil && (*req.MaxWeight <= 0 || *req.MaxWeight > 1) {
		return domain.ConfigError("portfolio.construct", "max_weight must be in (0, 1], got %v", *req.MaxWeight)
	}
	if req.Strategy != "" {
		if !universe.ValidStrategy(req.Strategy) {
			return domain.ConfigError("portfolio.construct", "unknown strategy %q", req.Strategy)
		}
		if req.TopN <= 0 {
			return domain.ConfigError("portfolio.construct", "strategy %q requires top_n > 0", req.Strategy)
		}
	} else if req.TopN != 0 {
		return domain.ConfigError("portfolio.construct", "top_n requires a selection strategy")
	}
	return nil
}

// trailingReturns compounds each symbol's last n observations into one
// period return.
func trailingReturns(panel *domain.ReturnsPanel, n int) map[string]float64 {
	offset := 0
	if panel.NumObservations() > n {
		offset = panel.NumObservations() - n
	}

	out := make(map[string]float64, len(panel.Symbols))
	for _, symbol := range panel.Symbols {
		out[symbol] = formulas.CompoundReturn(panel.Returns[symbol][offset:])
	}
	return out
}
