package universe

import (
	"sort"

	"github.com/aristath/quantscale/internal/domain"
)

// SelectUniverse applies a market-cap selection strategy to the snapshot and
// returns the chosen symbols in alphabetical order. An empty strategy returns
// the full universe. Unknown market caps sort as 0 and never fail selection.
func SelectUniverse(snap *Snapshot, strategy string, topN int) ([]string, error) {
	all := snap.Symbols()

	if strategy == "" {
		out := make([]string, len(all))
		copy(out, all)
		return out, nil
	}

	if !ValidStrategy(strategy) {
		return nil, domain.ConfigError("universe.select", "unknown strategy %q", strategy)
	}
	if topN <= 0 {
		return nil, domain.ConfigError("universe.select", "strategy %q requires top_n > 0, got %d", strategy, topN)
	}

	ranked := make([]string, len(all))
	copy(ranked, all)

	switch SelectionStrategy(strategy) {
	case StrategyLargestMarketCap:
		sort.SliceStable(ranked, func(i, j int) bool {
			return snap.MarketCapOf(ranked[i]) > snap.MarketCapOf(ranked[j])
		})
	case StrategySmallestMarketCap:
		sort.SliceStable(ranked, func(i, j int) bool {
			return snap.MarketCapOf(ranked[i]) < snap.MarketCapOf(ranked[j])
		})
	}

	if topN < len(ranked) {
		ranked = ranked[:topN]
	}

	// Restore alphabetical order so downstream indexing is deterministic.
	sort.Strings(ranked)
	return ranked, nil
}
