// Package attribution decomposes active return into Brinson-Fachler
// allocation and selection effects and ranks per-asset contributions.
package attribution

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/quantscale/internal/domain"
)

// RankingSize is how many contributors and detractors the report carries.
const RankingSize = 5

// Input is one attribution request over a single period. Universe is the
// ordered set of assets; ties in the contribution ranking are broken by this
// order. Excluded marks assets the optimizer zeroed by constraint, carried
// through as ranking metadata.
type Input struct {
	Universe         []string
	PortfolioWeights map[string]float64
	BenchmarkWeights map[string]float64
	PeriodReturns    map[string]float64
	SectorMap        map[string]string
	Excluded         map[string]bool
}

// Engine computes attribution reports. BundleInteraction folds the
// interaction term into selection, the convention benchmark reports here
// follow; turn it off to report the three effects separately.
type Engine struct {
	BundleInteraction bool
	log               zerolog.Logger
}

// NewEngine creates an attribution engine with interaction bundled into
// selection.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		BundleInteraction: true,
		log:               log.With().Str("component", "attribution").Logger(),
	}
}

type sectorBucket struct {
	name            string
	portfolioWeight float64
	benchmarkWeight float64
	portfolioReturn float64 // weight-averaged over held names, 0 when unheld
	benchmarkReturn float64
}

// Attribute decomposes the period's active return by sector and ranks
// per-asset contributions.
//
// Per sector, with R_total the full-universe benchmark return:
//
//	allocation  = (w_p − w_b) · (R_b − R_total)
//	selection   = w_b · (R_p − R_b)
//	interaction = (w_p − w_b) · (R_p − R_b)
//
// Per asset, contribution = (w_p − w_b) · return regardless of whether the
// asset is held: an unheld name that rallied hurt the portfolio and ranks as
// a detractor.
func (e *Engine) Attribute(in Input) (*domain.AttributionReport, error) {
	if len(in.Universe) == 0 {
		return nil, domain.DataError("attribution.attribute", "empty universe")
	}
	if in.PeriodReturns == nil {
		return nil, domain.DataError("attribution.attribute", "missing period returns")
	}

	benchmarkTotal := 0.0
	for _, symbol := range in.Universe {
		benchmarkTotal += in.BenchmarkWeights[symbol] * in.PeriodReturns[symbol]
	}

	buckets := e.buildSectorBuckets(in)

	report := &domain.AttributionReport{
		Rows: make([]domain.AttributionRow, 0, len(buckets)),
	}
	for _, bucket := range buckets {
		allocation := (bucket.portfolioWeight - bucket.benchmarkWeight) * (bucket.benchmarkReturn - benchmarkTotal)
		selection := bucket.benchmarkWeight * (bucket.portfolioReturn - bucket.benchmarkReturn)
		interaction := (bucket.portfolioWeight - bucket.benchmarkWeight) * (bucket.portfolioReturn - bucket.benchmarkReturn)

		report.Rows = append(report.Rows, domain.AttributionRow{
			Sector:      bucket.name,
			Allocation:  allocation,
			Selection:   selection,
			Interaction: interaction,
			TotalEffect: allocation + selection + interaction,
		})

		report.AllocationEffect += allocation
		report.InteractionEffect += interaction
		report.SelectionEffect += selection
	}

	if e.BundleInteraction {
		report.SelectionEffect += report.InteractionEffect
		report.InteractionEffect = 0
	}
	report.TotalActiveReturn = report.AllocationEffect + report.SelectionEffect + report.InteractionEffect

	report.TopContributors, report.TopDetractors = e.rankHoldings(in)

	e.log.Debug().
		Int("num_sectors", len(report.Rows)).
		Float64("total_active_return", report.TotalActiveReturn).
		Msg("Attribution computed")

	return report, nil
}

// buildSectorBuckets aggregates weights and weight-averaged returns per
// sector, in first-appearance order over the universe.
func (e *Engine) buildSectorBuckets(in Input) []*sectorBucket {
	index := make(map[string]*sectorBucket)
	ordered := make([]*sectorBucket, 0)

	for _, symbol := range in.Universe {
		sector := in.SectorMap[symbol]
		if sector == "" {
			sector = "Unknown"
		}
		bucket, ok := index[sector]
		if !ok {
			bucket = &sectorBucket{name: sector}
			index[sector] = bucket
			ordered = append(ordered, bucket)
		}

		r := in.PeriodReturns[symbol]
		wp := in.PortfolioWeights[symbol]
		wb := in.BenchmarkWeights[symbol]
		bucket.portfolioWeight += wp
		bucket.benchmarkWeight += wb
		bucket.portfolioReturn += wp * r
		bucket.benchmarkReturn += wb * r
	}

	// Convert weight sums of w·r into weight-averaged returns. An empty
	// side keeps return 0 rather than dividing by zero.
	for _, bucket := range ordered {
		if bucket.portfolioWeight > 0 {
			bucket.portfolioReturn /= bucket.portfolioWeight
		} else {
			bucket.portfolioReturn = 0
		}
		if bucket.benchmarkWeight > 0 {
			bucket.benchmarkReturn /= bucket.benchmarkWeight
		} else {
			bucket.benchmarkReturn = 0
		}
	}

	return ordered
}

// rankHoldings sorts assets by unconditional contribution and returns the
// top and bottom RankingSize entries. Sorting is stable over universe order
// so ties resolve deterministically.
func (e *Engine) rankHoldings(in Input) (contributors, detractors []domain.RankedHolding) {
	ranked := make([]domain.RankedHolding, 0, len(in.Universe))
	for _, symbol := range in.Universe {
		wp := in.PortfolioWeights[symbol]
		active := wp - in.BenchmarkWeights[symbol]
		sector := in.SectorMap[symbol]
		if sector == "" {
			sector = "Unknown"
		}
		ranked = append(ranked, domain.RankedHolding{
			Symbol:       symbol,
			Sector:       sector,
			Held:         wp > 0,
			Excluded:     in.Excluded[symbol],
			ActiveWeight: active,
			Contribution: active * in.PeriodReturns[symbol],
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Contribution > ranked[j].Contribution
	})

	topN := RankingSize
	if topN > len(ranked) {
		topN = len(ranked)
	}

	contributors = append(contributors, ranked[:topN]...)

	detractors = make([]domain.RankedHolding, 0, topN)
	for i := len(ranked) - 1; i >= len(ranked)-topN; i-- {
		detractors = append(detractors, ranked[i])
	}

	return contributors, detractors
}
